package bot

import "github.com/spec-kit/ticket-bot/internal/domain"

// Kind separates slash commands from component clicks.
type Kind int

const (
	KindCommand Kind = iota + 1
	KindComponent
)

// Slash command names registered in the guild.
const (
	CommandSetupTickets = "setup-tickets"
	CommandAddUser      = "add-user"
	CommandRemoveUser   = "remove-user"
	CommandBlockUser    = "block-user"
	CommandUnblockUser  = "unblock-user"

	optionUser = "user"
)

// Interaction is an inbound command or control click, detached from the SDK.
type Interaction struct {
	Kind    Kind
	Name    string // command name or component custom id
	Values  []string
	Options map[string]string
	Actor   domain.Actor
	Channel domain.ChannelRef
}

// Option returns a named command option.
func (i Interaction) Option(name string) string {
	if i.Options == nil {
		return ""
	}
	return i.Options[name]
}

// Reply is the ephemeral answer shown to the actor.
type Reply struct {
	Content string
}
