package channel

import "context"

// NullChannel is the no-op variant used when there is no embedding context.
// Sends vanish and requests resolve immediately with an empty response, so
// brokers can talk to it without special-casing.
type NullChannel struct{}

var _ Channel = (*NullChannel)(nil)

func NewNullChannel() *NullChannel {
	return &NullChannel{}
}

func (*NullChannel) Send(context.Context, string, map[string]any) error {
	return nil
}

func (*NullChannel) Request(context.Context, string, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func (*NullChannel) OnCommand(string, Handler) {}

func (*NullChannel) Close() error {
	return nil
}
