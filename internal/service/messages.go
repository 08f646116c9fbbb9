package service

// User facing texts. Rejections are shown to the requester verbatim.
const (
	msgBlocked          = "You are blocked from creating tickets."
	msgOpenTicketExists = "You already have an open ticket."
	msgUnknownCategory  = "Ticket category not found. Please contact an admin."
	msgChannelCreate    = "I don't have permissions to create a channel."
	msgNotTicketChannel = "This is not a valid ticket channel."
	msgNotTicketNamed   = "This is not a ticket channel."
	msgCloseForbidden   = "You do not have permission to close this ticket."
	msgClaimNotStaff    = "Only staff members can claim tickets."
	msgNotStaff         = "Only staff members can use this command."
	msgNotAdmin         = "Only administrators can set up the ticket panel."
	msgAlreadyClosed    = "This ticket is already closed."
	msgChannelStranded  = "This ticket is already closed, but its channel still could not be deleted. Please delete the channel by hand."
	msgAlreadyClaimedBy = "This ticket has already been claimed by <@%s>."
	msgNotClosed        = "This ticket is not closed yet."
	msgAlreadyRated     = "You have already rated this ticket."
	msgInvalidRating    = "Ratings must be between 1 and 5 stars."
	msgRatingExpired    = "This rating prompt has expired."
	msgNotOpener        = "Only the person who opened this ticket can rate it."
	msgArchiveFailed    = "The transcript could not be archived, so the ticket was left open. Please try again."
	msgAccessFailed     = "I could not update the permissions of this channel."

	msgWelcome       = "Welcome! A staff member will be with you shortly.\nReason: **%s**"
	msgClaimNotice   = "This ticket has been claimed by <@%s>."
	msgRatingPrompt  = "Please rate your support experience:"
	panelPlaceholder = "Choose a ticket reason..."
)

// Embed colors.
const (
	colorBlue = 0x3498db
	colorGold = 0xf1c40f
	colorRed  = 0xe74c3c
)
