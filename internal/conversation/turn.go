package conversation

// Sender identifies who authored a turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Channel names one of the two evidence sources attached to an answer.
type Channel string

const (
	ChannelKeyword  Channel = "keyword"
	ChannelSemantic Channel = "semantic"
)

// Evidence is one provenance channel: a short summary shown inline and the
// full supporting context revealed on demand.
type Evidence struct {
	Summary string
	Detail  string
}

// Bundle groups the evidence channels delivered with an answer. Either or
// both may be absent.
type Bundle struct {
	Keyword  *Evidence
	Semantic *Evidence
}

// Channel returns the evidence for the named channel, nil when absent.
func (b *Bundle) Channel(ch Channel) *Evidence {
	if b == nil {
		return nil
	}
	switch ch {
	case ChannelKeyword:
		return b.Keyword
	case ChannelSemantic:
		return b.Semantic
	}
	return nil
}

// Turn is one message unit in the conversation. Turns are immutable once
// appended.
type Turn struct {
	Sender     Sender
	Text       string
	Provenance *Bundle
	IsError    bool
}
