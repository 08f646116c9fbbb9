package bot

import "github.com/bwmarrin/discordgo"

var (
	manageChannels int64 = discordgo.PermissionManageChannels
	administrator  int64 = discordgo.PermissionAdministrator
)

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        optionUser,
		Description: description,
		Required:    true,
	}
}

// Commands returns the slash commands registered in the guild. Staff and
// admin checks still run on every call; the default permissions only hide
// the commands from members who could never use them.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandSetupTickets,
			Description:              "Post the ticket creation panel in this channel",
			DefaultMemberPermissions: &administrator,
		},
		{
			Name:        CommandAddUser,
			Description: "Give a member access to this ticket",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to add")},
		},
		{
			Name:        CommandRemoveUser,
			Description: "Remove a member's access to this ticket",
			Options:     []*discordgo.ApplicationCommandOption{userOption("Member to remove")},
		},
		{
			Name:                     CommandBlockUser,
			Description:              "Prevent a user from opening tickets",
			Options:                  []*discordgo.ApplicationCommandOption{userOption("User to block")},
			DefaultMemberPermissions: &manageChannels,
		},
		{
			Name:                     CommandUnblockUser,
			Description:              "Allow a blocked user to open tickets again",
			Options:                  []*discordgo.ApplicationCommandOption{userOption("User to unblock")},
			DefaultMemberPermissions: &manageChannels,
		},
	}
}
