package platformapi

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-platform-client/gateway"
	"github.com/jrsteele09/go-platform-client/model"
	"github.com/pkg/errors"
)

// Endpoint paths, relative to the versioned API base.
const (
	PathLogin            = "/auth/login"
	PathLogout           = "/auth/logout"
	PathRefresh          = "/auth/refresh"
	PathMe               = "/auth/me"
	PathAvailableSystems = "/auth/available-systems"
	PathSwitchSystem     = "/auth/switch-system"
	PathExitSystem       = "/auth/exit-system"
	PathCurrentContext   = "/auth/current-context"
	PathPermissions      = "/auth/permissions"
	PathMenus            = "/auth/menus"
	PathDeviceRegister   = "/devices/register"
	PathDeviceHeartbeat  = "/devices/heartbeat"
)

// Doer is the transport the client calls through. *gateway.Gateway satisfies it.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any, options ...gateway.RequestOption) error
}

// Client is a typed wrapper over the platform HTTP contract. It holds no state;
// callers decide what to store.
type Client struct {
	doer Doer
}

func New(doer Doer) *Client {
	return &Client{doer: doer}
}

// Login exchanges credentials for platform tokens. A 401 here is a bad
// password, not an expired session, so it is never retried.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.doer.Do(ctx, http.MethodPost, PathLogin, req, &resp, gateway.WithoutRetry()); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.doer.Do(ctx, http.MethodPost, PathLogout, nil, nil, gateway.WithPlatformToken(), gateway.WithoutRetry()); err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.doer.Do(ctx, http.MethodGet, PathMe, nil, &user); err != nil {
		return nil, errors.Wrap(err, "[Client.Me]")
	}
	return &user, nil
}

func (c *Client) AvailableSystems(ctx context.Context) (model.SystemRoles, error) {
	var resp model.AvailableSystemsResponse
	if err := c.doer.Do(ctx, http.MethodGet, PathAvailableSystems, nil, &resp, gateway.WithPlatformToken()); err != nil {
		return nil, errors.Wrap(err, "[Client.AvailableSystems]")
	}
	return resp.Systems, nil
}

// SwitchSystem asks for a system token. It is always sent with the platform
// token, even from inside another system.
func (c *Client) SwitchSystem(ctx context.Context, req model.SwitchSystemRequest) (*model.SwitchSystemResponse, error) {
	var resp model.SwitchSystemResponse
	if err := c.doer.Do(ctx, http.MethodPost, PathSwitchSystem, req, &resp, gateway.WithPlatformToken()); err != nil {
		return nil, errors.Wrap(err, "[Client.SwitchSystem]")
	}
	return &resp, nil
}

func (c *Client) ExitSystem(ctx context.Context) error {
	if err := c.doer.Do(ctx, http.MethodPost, PathExitSystem, nil, nil, gateway.WithPlatformToken()); err != nil {
		return errors.Wrap(err, "[Client.ExitSystem]")
	}
	return nil
}

// CurrentContext returns the server's view of the active context for the
// token sent.
func (c *Client) CurrentContext(ctx context.Context) (*model.CurrentContextResponse, error) {
	var resp model.CurrentContextResponse
	if err := c.doer.Do(ctx, http.MethodGet, PathCurrentContext, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.CurrentContext]")
	}
	return &resp, nil
}

func (c *Client) Permissions(ctx context.Context) ([]string, error) {
	var resp model.PermissionsResponse
	if err := c.doer.Do(ctx, http.MethodGet, PathPermissions, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.Permissions]")
	}
	return resp.Permissions, nil
}

func (c *Client) Menus(ctx context.Context) (model.MenuTree, error) {
	var resp model.MenusResponse
	if err := c.doer.Do(ctx, http.MethodGet, PathMenus, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.Menus]")
	}
	return resp.Menus, nil
}

func (c *Client) RegisterDevice(ctx context.Context, reg model.DeviceRegistration) error {
	if err := c.doer.Do(ctx, http.MethodPost, PathDeviceRegister, reg, nil, gateway.WithoutRetry()); err != nil {
		return errors.Wrap(err, "[Client.RegisterDevice]")
	}
	return nil
}

func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.doer.Do(ctx, http.MethodPost, PathDeviceHeartbeat, nil, nil); err != nil {
		return errors.Wrap(err, "[Client.Heartbeat]")
	}
	return nil
}
