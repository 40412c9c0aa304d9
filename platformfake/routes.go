package platformfake

// Route paths relative to APIPrefix.
const (
	APIPrefix = "/api/v1"

	RouteLogin            = "/auth/login"
	RouteLogout           = "/auth/logout"
	RouteRefresh          = "/auth/refresh"
	RouteMe               = "/auth/me"
	RouteAvailableSystems = "/auth/available-systems"
	RouteSwitchSystem     = "/auth/switch-system"
	RouteExitSystem       = "/auth/exit-system"
	RouteCurrentContext   = "/auth/current-context"
	RoutePermissions      = "/auth/permissions"
	RouteMenus            = "/auth/menus"
	RouteDeviceRegister   = "/devices/register"
	RouteDeviceHeartbeat  = "/devices/heartbeat"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST", RouteLogin, s.LoginHandler())
	s.RegisterRouteFunc("POST", RouteRefresh, s.RefreshHandler())
	s.RegisterRouteFunc("POST", RouteLogout, s.requireToken(s.LogoutHandler()))
	s.RegisterRouteFunc("GET", RouteMe, s.requireToken(s.MeHandler()))
	s.RegisterRouteFunc("GET", RouteAvailableSystems, s.requireToken(s.AvailableSystemsHandler()))
	s.RegisterRouteFunc("POST", RouteSwitchSystem, s.requireToken(s.SwitchSystemHandler()))
	s.RegisterRouteFunc("POST", RouteExitSystem, s.requireToken(s.ExitSystemHandler()))
	s.RegisterRouteFunc("GET", RouteCurrentContext, s.requireToken(s.CurrentContextHandler()))
	s.RegisterRouteFunc("GET", RoutePermissions, s.requireToken(s.PermissionsHandler()))
	s.RegisterRouteFunc("GET", RouteMenus, s.requireToken(s.MenusHandler()))
	s.RegisterRouteFunc("POST", RouteDeviceRegister, s.DeviceRegisterHandler())
	s.RegisterRouteFunc("POST", RouteDeviceHeartbeat, s.requireToken(s.DeviceHeartbeatHandler()))
}
