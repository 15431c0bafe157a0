package broker

import "fmt"

// factories maps each variant tag to its constructor, keeping the selection
// decision and broker construction independently testable.
var factories = map[Type]func(Deps) Broker{
	TypeFirstRun:    NewFirstRun,
	TypeFxFennecV1:  NewFxFennecV1,
	TypeFxDesktopV2: NewFxDesktopV2,
	TypeFxDesktopV1: NewFxDesktopV1,
	TypeFxiOSV1:     NewFxiOSV1,
	TypeFxiOSV2:     NewFxiOSV2,
	TypeWebChannel:  NewWebChannel,
	TypeIframe:      NewIframe,
	TypeRedirect:    NewRedirect,
	TypeBase: func(deps Deps) Broker {
		return NewBase(deps)
	},
}

// New constructs the broker for a selected tag.
func New(t Type, deps Deps) (Broker, error) {
	factory, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("unknown broker type %q", t)
	}
	return factory(deps), nil
}
