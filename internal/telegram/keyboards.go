package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu labels. Exact-match dispatch depends on these strings.
const (
	btnBindIP     = "🔗 Bind IP"
	btnMyDomains  = "📂 My Domains"
	btnInviteLink = "🎁 My Invite Link"
	btnDailyQuota = "📊 Daily Quota"
	btnHelp       = "❓ Help"
	btnLanguage   = "🌐 Language"
	btnAdminPanel = "🛠 Admin Panel"
)

// Operator panel labels.
const (
	btnUsers       = "👥 Users"
	btnStats       = "📊 Stats"
	btnBanUser     = "🚫 Ban User"
	btnUnbanUser   = "✅ Unban User"
	btnBroadcast   = "📢 Broadcast"
	btnChannels    = "📣 Forced Channels"
	btnPauseBot    = "⏸️ Pause Bot"
	btnResumeBot   = "▶️ Resume Bot"
	btnEditWelcome = "✏️ Edit Welcome"
	btnBack        = "🔙 Back"
)

// Forced-channels submenu labels.
const (
	btnListChannels  = "📋 List Channels"
	btnAddChannel    = "➕ Add Channel"
	btnRemoveChannel = "🗑️ Remove Channel"
)

func mainKeyboard(isOperator bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton(btnBindIP)},
		{tgbotapi.NewKeyboardButton(btnMyDomains)},
		{tgbotapi.NewKeyboardButton(btnInviteLink), tgbotapi.NewKeyboardButton(btnDailyQuota)},
		{tgbotapi.NewKeyboardButton(btnHelp), tgbotapi.NewKeyboardButton(btnLanguage)},
	}
	if isOperator {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnAdminPanel)})
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func adminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnUsers), tgbotapi.NewKeyboardButton(btnStats)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBanUser), tgbotapi.NewKeyboardButton(btnUnbanUser)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBroadcast)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnChannels)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnPauseBot), tgbotapi.NewKeyboardButton(btnResumeBot)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnEditWelcome)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func channelsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnListChannels)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddChannel), tgbotapi.NewKeyboardButton(btnRemoveChannel)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func domainInlineKeyboard(fqdn string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Delete", "askdel|"+fqdn),
			tgbotapi.NewInlineKeyboardButtonData("📋 Copy Name", "copy|"+fqdn),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Rebind", "rebind|"+fqdn),
		),
	)
}

func confirmDeleteKeyboard(fqdn string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔒 Confirm Delete", "confirm|"+fqdn),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
	)
}

func forceJoinKeyboard(channels []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 4)
	for i, ch := range channels {
		if i >= 3 {
			break
		}
		username := strings.TrimPrefix(ch, "@")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(fmt.Sprintf("🔗 Join %s", ch), "https://t.me/"+username),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Check Subscription", "checksub"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("English", "lang|en"),
			tgbotapi.NewInlineKeyboardButtonData("العربية", "lang|ar"),
		),
	)
}
