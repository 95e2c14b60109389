package session

// BindFlag is a bitset of bind options.
type BindFlag uint8

const (
	// BindNoWait applies to bind only; unbind always waits for the broker.
	BindNoWait BindFlag = 1 << iota

	BindNoFlags BindFlag = 0
)

// Bind routes messages from Source to Target.
type Bind struct {
	Source     Destination
	Target     Destination
	RoutingKey string
	Flags      BindFlag
	Arguments  map[string]interface{}
}

// NewBind returns a bind without flags or arguments.
func NewBind(source, target Destination, routingKey string) *Bind {
	return &Bind{
		Source:     source,
		Target:     target,
		RoutingKey: routingKey,
		Arguments:  map[string]interface{}{},
	}
}

func (b *Bind) AddFlag(f BindFlag)      { b.Flags |= f }
func (b *Bind) HasFlag(f BindFlag) bool { return b.Flags&f != 0 }
