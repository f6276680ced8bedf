package handler

import (
	"fmt"
	"strings"

	"github.com/m3rciful/lumiabot/core/telegram/format"
	"github.com/m3rciful/lumiabot/internal/model"
)

const cancelHint = "Use /cancel to cancel the action."

const (
	msgSelectProductType  = "Select your Lumia product type.\n" + cancelHint
	msgSelectProductCode  = "Select your Lumia product code.\n" + cancelHint
	msgInvalidProductType = "Please select a valid product type.\n" + cancelHint
	msgInvalidProductCode = "Please select a valid product code.\n" + cancelHint

	msgUploadPrompt = "Please send or forward your firmware package in ZIP format, " +
		"including a caption that specifies the firmware product type and product code. " +
		"You may also include any relevant messages if you wish. " +
		"Packages that do not meet these requirements, such as ZIP format and the necessary caption, " +
		"will be rejected.\n" + cancelHint + "\n\n" +
		"Note that sending or forwarding irrelevant files may result in you being blocked."
	msgUploadThanks = "Thank you for helping us extend the repository. " +
		"We will review this firmware package and add it to the repository soon."
	msgUploadNotZip   = "Sorry, the firmware package must be in ZIP format. Please send a new one.\n" + cancelHint
	msgUploadReminder = "Please send your firmware package as a ZIP document.\n" + cancelHint

	msgBroadcastPrompt   = "Send or forward the message you would like to notify.\n" + cancelHint
	msgBroadcastProgress = "Notifying users... please hold on."
	msgBroadcastDone     = "All users have been notified."
	msgBroadcastEmpty    = "This kind of message cannot be sent to users. Nothing was notified."

	msgLookupPrompt = "Please forward a message from the user you wish to retrieve their user ID.\n" + cancelHint
	msgLookupFailed = "Couldn't retrieve the user ID.\nThis may be because you are forwarding a message " +
		"from a hidden user, or you are not forwarding a message at all."

	msgCancelled       = "The action has been cancelled."
	msgNothingToCancel = "There is no ongoing action to cancel."

	msgDeliveryFailed = "Sorry, the files could not be sent right now. Please try again later."
	msgInternalError  = "Something went wrong while processing your request. Please start again."
	msgSlowDown       = "You are sending messages too quickly. Please wait a moment."

	msgNotAdmin      = "You do not have admin privileges to use this request."
	msgNotSuperAdmin = "Only super admin can use this request."

	msgInvalidUserID   = "Please enter a valid user ID."
	msgUnknownUserID   = "This user ID does not exist."
	msgInvalidType     = "Please enter a valid product type."
	msgInvalidCode     = "Please enter a valid product code."
	msgUserNotified    = "The user has been notified."
	msgUserNotReached  = "The message could not be delivered to the user."
	msgUnblockReceived = "Your unblock request has been sent. We will review it soon."

	msgPromoteBlocked  = "You cannot promote a user who is blocked from using the bot."
	msgPromoted        = "The user has been promoted to admin privileges."
	msgAlreadyAdmin    = "The user is already an admin."
	msgDemoteSuper     = "You cannot demote a super admin."
	msgDemoted         = "The user has been demoted from admin privileges."
	msgNotAnAdmin      = "The user is already not an admin."
	msgBlockPrivileged = "You're unable to block an admin."
	msgAlreadyBlocked  = "The user has already been blocked."
	msgNotBlocked      = "The user is not blocked, so there is no need to unblock them."

	msgAdministrators = "<b>Super Admin Commands</b>\n" +
		"/add_admin - Promote a user to admin privileges.\n" +
		"/remove_admin - Demote a user from admin privileges.\n" +
		"/text_user - Send a message to a bot user.\n" +
		"/notify_all - Send a message to all the bot users.\n\n" +
		"<b>Admin Commands</b>\n" +
		"/list_admins - Display the list of admins.\n" +
		"/get_id - Retrieve the user ID of a user.\n" +
		"/get_info - Retrieve the user info of a user.\n" +
		"/block_user - Block a user from using the bot.\n" +
		"/unblock_user - Unblock a user from using the bot.\n" +
		"/blocked_users - Display the list of blocked users."
)

// usage renders the HTML help shown when a command lacks arguments.
func usage(command, params, example string) string {
	return fmt.Sprintf("<b>Usage:</b>\n\t\t/%s %s\n\n<b>Example:</b>\n\t\t<code>/%s %s</code>",
		command, format.EscapeHTML(params), command, format.EscapeHTML(example))
}

var (
	usageRequest = usage("request", "<ProductType> <ProductCode>", "RM-1085 059X4T0") +
		"\n\nNote that abusing this feature will result in you being blocked."
	usageUnblock     = usage("unblock", "<Reason>", "Sorry, I will never abuse the bot again.")
	usageAddAdmin    = usage("add_admin", "<UserID>", "1234567890")
	usageRemoveAdmin = usage("remove_admin", "<UserID>", "1234567890")
	usageTextUser    = usage("text_user", "<UserID> <Message>", "1234567890 Hi! Hope you find using the bot useful.")
	usageGetInfo     = usage("get_info", "<UserID>", "1234567890")
	usageBlockUser   = usage("block_user", "<UserID> <Reason>", "1234567890 For abusing the bot.")
	usageUnblockUser = usage("unblock_user", "<UserID>", "1234567890")
)

func welcomeText(p model.Profile, known bool) string {
	link := fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, p.ID, format.EscapeHTML(p.FirstName))
	if known {
		return "Hey there " + link + ", and welcome back to the Lumia Firmware Download Bot! " +
			"Use /download to get started with me."
	}
	return "Hey there " + link + ", and welcome to the Lumia Firmware Download Bot! " +
		"Use /download to get started with me."
}

func quotaText(wait string) string {
	return "You have reached your limit of download requests. You can download again in " + wait + "."
}

func noFirmwareForTypeText(productType string) string {
	return format.V2("There is no firmware available in the repository for product type ",
		format.CodeV2(productType), ", but you can request it using /request.")
}

func noFirmwareForCodeText(productType, productCode string) string {
	return format.V2("There is no firmware available in the repository for product type ",
		format.CodeV2(productType), " with product code ", format.CodeV2(productCode),
		", but you can request it using /request.")
}

func noEmergencyText(productType string) string {
	return format.V2("There is no emergency flash files available in the repository for product type ",
		format.CodeV2(productType), ".")
}

func alreadyAvailableText(productType, productCode string) string {
	return format.V2("The requested firmware for product type ", format.CodeV2(productType),
		" with product code ", format.CodeV2(productCode), " is already in the repository.")
}

func requestAcceptedText(productType, productCode string) string {
	return format.V2("Your request has been accepted. We will add the firmware for product type ",
		format.CodeV2(productType), " with product code ", format.CodeV2(productCode),
		" as soon as possible and will notify you.")
}

func userIDText(id int64) string {
	return format.V2("User ID: ", format.CodeV2(fmt.Sprint(id)))
}

func blockedUserText(id int64) string {
	return format.V2("Successfully blocked the user ID ", format.CodeV2(fmt.Sprint(id)))
}

func unblockedUserText(id int64) string {
	return format.V2("Successfully unblocked the user ID ", format.CodeV2(fmt.Sprint(id)))
}

func blockedNoticeText(reason string) string {
	return "You have been blocked. Use /unblock to request to be unblocked.\n\n<b>Reason:</b> " +
		format.EscapeHTML(reason) + "."
}

func identityLines(p model.Profile) string {
	return fmt.Sprintf("<b>User ID:</b> <code>%d</code>\n<b>Fullname:</b> <code>%s</code>\n<b>Username:</b> %s\n",
		p.ID, format.EscapeHTML(p.FullName()), format.EscapeHTML(p.Handle()))
}

func requestTicketText(requestID string, p model.Profile, productType, productCode string) string {
	return fmt.Sprintf("<b>Request ID:</b> <code>%s</code>\n", requestID) + identityLines(p) +
		fmt.Sprintf("<b>Product Type:</b> <code>%s</code>\n<b>Product Code:</b> <code>%s</code>",
			format.EscapeHTML(productType), format.EscapeHTML(productCode))
}

func unblockTicketText(p model.Profile, reason string) string {
	return identityLines(p) + fmt.Sprintf("<b>Reason:</b> <code>%s</code>", format.EscapeHTML(reason))
}

func chatInfoText(fullName, username, chatType, bio string) string {
	return fmt.Sprintf("<b>Fullname:</b> <code>%s</code>\n<b>Username:</b> %s\n<b>Type:</b> %s\n<b>Bio:</b> <code>%s</code>\n",
		format.EscapeHTML(fullName), format.EscapeHTML(username), format.EscapeHTML(chatType), format.EscapeHTML(bio))
}

func adminsText(admins []model.Admin) string {
	if len(admins) == 0 {
		return "<b>Admin Users</b>\nThere are currently no admins to display.\nSuper admins will not be listed here."
	}
	var b strings.Builder
	b.WriteString("<b>Admin Users</b>\n")
	for _, a := range admins {
		fmt.Fprintf(&b, "UserID: <code>%d</code>\nFullname: <code>%s</code>\nUsername: %s\n\n",
			a.ID, format.EscapeHTML(a.FullName), format.EscapeHTML(a.Username))
	}
	b.WriteString("\nNote that super admins will not be listed here.")
	return b.String()
}

func blockedListText(blocked []model.Blocked) string {
	if len(blocked) == 0 {
		return "<b>Blocked Users</b>\nThere are no blocked users yet."
	}
	var b strings.Builder
	b.WriteString("<b>Blocked Users</b>\n")
	for _, u := range blocked {
		fmt.Fprintf(&b, "UserID: <code>%d</code>\nFullname: <code>%s</code>\nUsername: %s\nReason: <code>%s</code>\n\n",
			u.ID, format.EscapeHTML(u.FullName), format.EscapeHTML(u.Username), format.EscapeHTML(u.Reason))
	}
	return b.String()
}
