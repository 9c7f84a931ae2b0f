package plugin

import "fmt"

// Option is a host visible string typed setting.
type Option struct {
	Name string
	Get  func() string
	Set  func(string) error
}

// Options returns the settings table.
func (p *Plugin) Options() []Option {
	return p.options
}

func (p *Plugin) option(name string) (Option, error) {
	for _, opt := range p.options {
		if opt.Name == name {
			return opt, nil
		}
	}
	return Option{}, fmt.Errorf("unknown option %q", name)
}

// GetOption returns the value of the named option and a status code.
func (p *Plugin) GetOption(name string) (string, int) {
	opt, err := p.option(name)
	if err != nil {
		return "", -int(ErrorNotOption)
	}
	return opt.Get(), 0
}

// SetOption updates the named option, on failure the previous value is kept.
func (p *Plugin) SetOption(name, val string) int {
	opt, err := p.option(name)
	if err != nil {
		p.log.Warnf("%v", err)
		return -int(ErrorNotOption)
	}

	if err := opt.Set(val); err != nil {
		p.log.WithError(err).Warnf("rejected value for %s", name)
		return Status(err)
	}

	p.log.Debugf("option %s set to %s", name, opt.Get())
	return 0
}
