package config

type SessionConfig interface {
	GetNotifyExit() bool
	GetAutoSwitch() bool
}

type Session struct {
	NotifyExit bool `env:"PLATFORM_NOTIFY_EXIT" envDefault:"true"`
	AutoSwitch bool `env:"PLATFORM_AUTO_SWITCH" envDefault:"true"`
}

var _ SessionConfig = Session{}

// GetNotifyExit reports whether exit-system is announced to the server. The
// local transition happens either way.
func (s Session) GetNotifyExit() bool {
	return s.NotifyExit
}

// GetAutoSwitch reports whether login enters the default system straight away.
func (s Session) GetAutoSwitch() bool {
	return s.AutoSwitch
}
