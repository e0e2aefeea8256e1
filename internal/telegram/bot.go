package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velmor/dnslinkbot/internal/cloudflare"
	"github.com/velmor/dnslinkbot/internal/config"
	"github.com/velmor/dnslinkbot/internal/models"
	"github.com/velmor/dnslinkbot/internal/service"
)

const recentUsersShown = 15

type Bot struct {
	cfg      config.Config
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	users    *service.UserService
	quota    *service.QuotaService
	domains  *service.DomainService
	settings *service.SettingsService
	state    *StateManager
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, users *service.UserService, quota *service.QuotaService, domains *service.DomainService, settings *service.SettingsService) *Bot {
	return &Bot{
		cfg:      cfg,
		api:      api,
		log:      log,
		users:    users,
		quota:    quota,
		domains:  domains,
		settings: settings,
		state:    NewStateManager(),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) isOperator(userID int64) bool {
	return b.quota.IsOperator(userID)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.handleStart(ctx, msg)
		}
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	b.handleText(ctx, msg, text)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	uid := msg.From.ID
	user, created, err := b.users.Register(ctx, uid, msg.From.FirstName, msg.From.UserName)
	if err != nil {
		b.log.Error("register user", "err", err)
		return
	}
	if created {
		b.notifyNewUser(ctx, user)
		if refID, ok := parseReferralArg(msg.CommandArguments()); ok {
			rewarded, err := b.users.RewardReferral(ctx, uid, refID)
			if err != nil {
				b.log.Error("reward referral", "referee", uid, "referrer", refID, "err", err)
			} else if rewarded {
				b.sendText(refID, "🎉 Your invite was accepted!\n✅ One extra daily attempt added (+1).")
			}
		}
	}

	if !b.guard(ctx, msg.Chat.ID, user, true) {
		return
	}

	welcome, err := b.settings.WelcomeMessage(ctx, user.Locale)
	if err != nil {
		b.log.Error("read welcome message", "err", err)
		welcome = "👋 Welcome!"
	}
	b.sendWithKeyboard(msg.Chat.ID, welcome, mainKeyboard(b.isOperator(uid)))
}

// handleText dispatches a plain text message. Precedence is fixed:
// operator-pending input, then menu labels, then user-pending input, then
// silent ignore. An operator pending flag is consumed no matter what the text
// says, so an operator with a stale user-level expectation never misroutes.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message, text string) {
	uid := msg.From.ID
	chatID := msg.Chat.ID

	user, _, err := b.users.Register(ctx, uid, msg.From.FirstName, msg.From.UserName)
	if err != nil {
		b.log.Error("register user", "err", err)
		return
	}

	session := b.state.Get(chatID)
	if b.isOperator(uid) && session.Pending.OperatorScoped() {
		pending, _ := b.state.TakePending(chatID)
		b.handleOperatorInput(ctx, chatID, pending, text)
		return
	}

	if b.isOperator(uid) && b.handleOperatorMenu(ctx, chatID, session, text) {
		return
	}

	if !b.guard(ctx, chatID, user, true) {
		return
	}

	if b.handleUserMenu(ctx, chatID, user, text) {
		return
	}

	pending, target := b.state.TakePending(chatID)
	switch pending {
	case PendingCreateIP:
		b.doCreate(ctx, chatID, user, text)
	case PendingRebindIP:
		b.doRebind(ctx, chatID, user, target, text)
	default:
		// Unmatched text with nothing awaited is ignored.
	}
}

// ================== User flows ==================

func (b *Bot) handleUserMenu(ctx context.Context, chatID int64, user *models.User, text string) bool {
	switch text {
	case btnBindIP:
		b.state.SetPending(chatID, PendingCreateIP, "")
		b.sendText(chatID, "📥 Send the IP address now:")
	case btnMyDomains:
		b.showDomains(ctx, chatID, user)
	case btnInviteLink:
		b.showInviteLink(chatID, user.ID)
	case btnDailyQuota:
		b.showQuota(ctx, chatID, user.ID)
	case btnHelp:
		b.showHelp(ctx, chatID, user)
	case btnLanguage:
		out := tgbotapi.NewMessage(chatID, "🌐 Choose your language:")
		out.ReplyMarkup = languageKeyboard()
		b.send(out)
	default:
		return false
	}
	return true
}

func (b *Bot) doCreate(ctx context.Context, chatID int64, user *models.User, ip string) {
	binding, err := b.domains.Create(ctx, user, ip)
	if err != nil {
		b.sendWithKeyboard(chatID, b.renderError(user.ID, err), mainKeyboard(b.isOperator(user.ID)))
		return
	}

	remaining := strconv.Itoa(binding.Remaining)
	if binding.Remaining == service.UnlimitedRemaining {
		remaining = "∞"
	}
	b.sendWithKeyboard(chatID, fmt.Sprintf(
		"✅ Linked successfully 🎉\n\n🌐 %s\nA → %s\n%s\n⏳ Remaining today: %s",
		binding.FQDN, binding.IP, renderNS(binding.NS), remaining,
	), mainKeyboard(b.isOperator(user.ID)))
}

func (b *Bot) doRebind(ctx context.Context, chatID int64, user *models.User, fqdn, ip string) {
	binding, err := b.domains.Rebind(ctx, user, fqdn, ip)
	if err != nil {
		b.sendWithKeyboard(chatID, b.renderError(user.ID, err), mainKeyboard(b.isOperator(user.ID)))
		return
	}
	b.sendWithKeyboard(chatID, fmt.Sprintf(
		"✅ Rebound:\n🌐 %s\nA → %s\n%s",
		binding.FQDN, binding.IP, renderNS(binding.NS),
	), mainKeyboard(b.isOperator(user.ID)))
}

func (b *Bot) showDomains(ctx context.Context, chatID int64, user *models.User) {
	domains, err := b.domains.List(ctx, user.ID)
	if err != nil {
		b.log.Error("list domains", "err", err)
		b.sendText(chatID, "⚠️ Could not load your domains, try again later.")
		return
	}
	if len(domains) == 0 {
		b.sendWithKeyboard(chatID, "📂 You have no domains yet.", mainKeyboard(b.isOperator(user.ID)))
		return
	}
	for _, d := range domains {
		out := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"🌐 %s\n➡️ %s\n%s\n⏰ %s",
			d.FQDN, d.IP, renderNS(b.domains.NSRecordsFor(d.FQDN)), d.CreatedAt.Format("2006-01-02 15:04:05"),
		))
		out.ReplyMarkup = domainInlineKeyboard(d.FQDN)
		b.send(out)
	}
}

func (b *Bot) showInviteLink(chatID, userID int64) {
	me, err := b.api.GetMe()
	if err != nil {
		b.log.Error("get me", "err", err)
		return
	}
	link := fmt.Sprintf("https://t.me/%s?start=ref_%d", me.UserName, userID)
	b.sendText(chatID, fmt.Sprintf(
		"🎁 Your invite link:\n%s\n\n✅ Every new user who joins through it earns you one extra daily attempt (+1).", link,
	))
}

func (b *Bot) showQuota(ctx context.Context, chatID, userID int64) {
	if b.isOperator(userID) {
		b.sendWithKeyboard(chatID, "👑 You are the operator — no attempt limits ✅", mainKeyboard(true))
		return
	}
	used, bonus, limit, err := b.quota.StatsToday(ctx, userID)
	if err != nil {
		b.log.Error("quota stats", "err", err)
		b.sendText(chatID, "⚠️ Could not read your quota, try again later.")
		return
	}
	b.sendWithKeyboard(chatID, fmt.Sprintf(
		"📊 Today\nUsed: %d\nBonus: +%d\nTotal limit: %d", used, bonus, limit,
	), mainKeyboard(false))
}

func (b *Bot) showHelp(ctx context.Context, chatID int64, user *models.User) {
	help, err := b.settings.HelpMessage(ctx, user.Locale)
	if err != nil {
		b.log.Error("read help message", "err", err)
		return
	}
	channels, err := b.settings.ForceChannels(ctx)
	if err != nil {
		b.log.Error("read force channels", "err", err)
	}
	if len(channels) > 0 {
		help += "\n\n📣 Required channels: " + strings.Join(channels, ", ")
	}
	b.sendWithKeyboard(chatID, help, mainKeyboard(b.isOperator(user.ID)))
}

// ================== Operator flows ==================

func (b *Bot) handleOperatorMenu(ctx context.Context, chatID int64, session Session, text string) bool {
	if session.ChannelsMenu {
		switch text {
		case btnBack:
			b.state.SetChannelsMenu(chatID, false)
			b.sendWithKeyboard(chatID, "🛠 Operator panel", adminKeyboard())
			return true
		case btnListChannels:
			channels, err := b.settings.ForceChannels(ctx)
			if err != nil {
				b.log.Error("read force channels", "err", err)
				return true
			}
			if len(channels) == 0 {
				b.sendWithKeyboard(chatID, "No channels configured.", channelsKeyboard())
				return true
			}
			lines := make([]string, 0, len(channels))
			for _, ch := range channels {
				lines = append(lines, "• "+ch)
			}
			b.sendWithKeyboard(chatID, "📣 Current channels:\n"+strings.Join(lines, "\n"), channelsKeyboard())
			return true
		case btnAddChannel:
			b.state.SetPending(chatID, PendingChannelAdd, "")
			b.sendWithKeyboard(chatID, "➕ Send the channel identifier, e.g. @channel (or without @):", channelsKeyboard())
			return true
		case btnRemoveChannel:
			b.state.SetPending(chatID, PendingChannelRemove, "")
			b.sendWithKeyboard(chatID, "🗑️ Send the channel identifier to remove, e.g. @channel:", channelsKeyboard())
			return true
		}
	}

	switch text {
	case btnBack:
		b.sendWithKeyboard(chatID, "✅ Back to the main menu", mainKeyboard(true))
	case btnAdminPanel:
		b.sendWithKeyboard(chatID, "🛠 Operator panel", adminKeyboard())
	case btnStats:
		b.showStats(ctx, chatID)
	case btnUsers:
		b.showUsers(ctx, chatID)
	case btnBanUser:
		b.state.SetPending(chatID, PendingBanID, "")
		b.sendWithKeyboard(chatID, "🆔 Send the user id to ban:", adminKeyboard())
	case btnUnbanUser:
		b.state.SetPending(chatID, PendingUnbanID, "")
		b.sendWithKeyboard(chatID, "🆔 Send the user id to unban:", adminKeyboard())
	case btnPauseBot:
		if err := b.settings.SetBotEnabled(ctx, false); err != nil {
			b.log.Error("pause bot", "err", err)
			return true
		}
		b.sendWithKeyboard(chatID, "⛔ Bot paused.", adminKeyboard())
	case btnResumeBot:
		if err := b.settings.SetBotEnabled(ctx, true); err != nil {
			b.log.Error("resume bot", "err", err)
			return true
		}
		b.sendWithKeyboard(chatID, "✅ Bot resumed.", adminKeyboard())
	case btnEditWelcome:
		b.state.SetPending(chatID, PendingWelcomeText, "")
		b.sendWithKeyboard(chatID, "✏️ Send the new welcome message now:", adminKeyboard())
	case btnBroadcast:
		b.state.SetPending(chatID, PendingBroadcast, "")
		b.sendWithKeyboard(chatID, "📢 Send the broadcast message now:", adminKeyboard())
	case btnChannels:
		b.state.SetChannelsMenu(chatID, true)
		b.sendWithKeyboard(chatID, "📣 Forced-membership channels", channelsKeyboard())
	default:
		return false
	}
	return true
}

func (b *Bot) handleOperatorInput(ctx context.Context, chatID int64, pending PendingInput, text string) {
	switch pending {
	case PendingBroadcast:
		b.broadcast(ctx, chatID, text)
	case PendingWelcomeText:
		if err := b.settings.SetWelcomeMessage(ctx, "", text); err != nil {
			b.log.Error("set welcome message", "err", err)
			b.sendWithKeyboard(chatID, "⚠️ Could not save the welcome message.", adminKeyboard())
			return
		}
		b.sendWithKeyboard(chatID, "✅ Welcome message updated.", adminKeyboard())
	case PendingBanID, PendingUnbanID:
		target, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			b.sendWithKeyboard(chatID, "❌ Invalid user id.", adminKeyboard())
			return
		}
		ban := pending == PendingBanID
		if err := b.users.SetBanned(ctx, target, ban); err != nil {
			b.log.Error("set banned", "target", target, "err", err)
			b.sendWithKeyboard(chatID, "⚠️ Could not update the user.", adminKeyboard())
			return
		}
		if ban {
			b.sendWithKeyboard(chatID, fmt.Sprintf("🚫 User banned: %d", target), adminKeyboard())
		} else {
			b.sendWithKeyboard(chatID, fmt.Sprintf("✅ User unbanned: %d", target), adminKeyboard())
		}
	case PendingChannelAdd:
		if service.NormalizeChannel(text) == "" {
			b.sendWithKeyboard(chatID, "❌ Send a valid channel identifier.", channelsKeyboard())
			return
		}
		if err := b.settings.AddForceChannel(ctx, text); err != nil {
			b.log.Error("add force channel", "err", err)
			b.sendWithKeyboard(chatID, "⚠️ Could not add the channel.", channelsKeyboard())
			return
		}
		b.sendWithKeyboard(chatID, "✅ Channel added.", channelsKeyboard())
	case PendingChannelRemove:
		if service.NormalizeChannel(text) == "" {
			b.sendWithKeyboard(chatID, "❌ Send a valid channel identifier.", channelsKeyboard())
			return
		}
		if err := b.settings.RemoveForceChannel(ctx, text); err != nil {
			b.log.Error("remove force channel", "err", err)
			b.sendWithKeyboard(chatID, "⚠️ Could not remove the channel.", channelsKeyboard())
			return
		}
		b.sendWithKeyboard(chatID, "✅ Channel removed (if it was present).", channelsKeyboard())
	}
}

func (b *Bot) showStats(ctx context.Context, chatID int64) {
	users, err := b.users.Count(ctx)
	if err != nil {
		b.log.Error("count users", "err", err)
		return
	}
	domains, err := b.domains.CountAll(ctx)
	if err != nil {
		b.log.Error("count domains", "err", err)
		return
	}
	enabled, err := b.settings.BotEnabled(ctx)
	if err != nil {
		b.log.Error("read bot status", "err", err)
		return
	}
	status := "✅ running"
	if !enabled {
		status = "⛔ paused"
	}
	channels, _ := b.settings.ForceChannels(ctx)
	channelList := "none"
	if len(channels) > 0 {
		channelList = strings.Join(channels, ", ")
	}
	b.sendWithKeyboard(chatID, fmt.Sprintf(
		"📊 Stats\n\n👥 Users: %d\n🌐 Domains: %d\n⚙️ Bot: %s\n📣 Channels: %s",
		users, domains, status, channelList,
	), adminKeyboard())
}

func (b *Bot) showUsers(ctx context.Context, chatID int64) {
	total, err := b.users.Count(ctx)
	if err != nil {
		b.log.Error("count users", "err", err)
		return
	}
	banned, err := b.users.CountBanned(ctx)
	if err != nil {
		b.log.Error("count banned users", "err", err)
		return
	}
	recent, err := b.users.ListRecent(ctx, recentUsersShown)
	if err != nil {
		b.log.Error("list recent users", "err", err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Users\n\n📊 Total: %d\n🚫 Banned: %d\n\nLast %d:\n", total, banned, recentUsersShown)
	for _, u := range recent {
		username := "-"
		if u.Username != "" {
			username = "@" + u.Username
		}
		name := u.FirstName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&sb, "• %d | %s | %s | %s\n", u.ID, name, username, u.JoinedAt.Format("2006-01-02 15:04:05"))
	}
	b.sendWithKeyboard(chatID, sb.String(), adminKeyboard())
}

// broadcast fans the message out to every non-banned user sequentially. One
// recipient's delivery failure never aborts delivery to the rest.
func (b *Bot) broadcast(ctx context.Context, chatID int64, text string) {
	ids, err := b.users.ListActiveIDs(ctx)
	if err != nil {
		b.log.Error("broadcast recipients", "err", err)
		b.sendWithKeyboard(chatID, "⚠️ Could not load recipients.", adminKeyboard())
		return
	}

	ok, fail := 0, 0
	for _, id := range ids {
		if _, err := b.api.Send(tgbotapi.NewMessage(id, text)); err != nil {
			fail++
			continue
		}
		ok++
	}
	b.sendWithKeyboard(chatID, fmt.Sprintf(
		"📢 Broadcast finished\n\n✅ Delivered: %d\n❌ Failed: %d\n👥 Total: %d", ok, fail, len(ids),
	), adminKeyboard())
}

func (b *Bot) notifyNewUser(ctx context.Context, user *models.User) {
	if b.cfg.AdminID == 0 {
		return
	}
	total, err := b.users.Count(ctx)
	if err != nil {
		b.log.Error("count users", "err", err)
		return
	}
	username := "-"
	if user.Username != "" {
		username = "@" + user.Username
	}
	b.sendText(b.cfg.AdminID, fmt.Sprintf(
		"👤 New user joined\n\n🆔 ID: %d\n👤 Name: %s\n📛 Username: %s\n📊 Total users: %d",
		user.ID, user.FirstName, username, total,
	))
}

// ================== Callbacks ==================

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		return
	}
	uid := cb.From.ID
	chatID := cb.Message.Chat.ID
	data := cb.Data

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error("callback ack", "err", err)
	}

	user, _, err := b.users.Register(ctx, uid, cb.From.FirstName, cb.From.UserName)
	if err != nil {
		b.log.Error("register user", "err", err)
		return
	}

	if data == "checksub" {
		ok, info := b.isSubscribed(ctx, uid)
		if ok {
			b.sendWithKeyboard(chatID, "✅ Verified! You can use the bot now.", mainKeyboard(b.isOperator(uid)))
			return
		}
		if b.isOperator(uid) && info != "" {
			b.sendText(chatID, "⚠️ Subscription check failed:\n"+info)
		}
		channels, _ := b.settings.ForceChannels(ctx)
		out := tgbotapi.NewMessage(chatID, "❌ Not subscribed yet.\nJoin the channel(s), then press ✅ Check Subscription.")
		out.ReplyMarkup = forceJoinKeyboard(channels)
		b.send(out)
		return
	}

	if !b.guard(ctx, chatID, user, false) {
		return
	}

	switch {
	case strings.HasPrefix(data, "copy|"):
		fqdn := strings.TrimPrefix(data, "copy|")
		if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(cb.ID, fqdn)); err != nil {
			b.log.Error("copy alert", "err", err)
		}

	case strings.HasPrefix(data, "askdel|"):
		fqdn := strings.TrimPrefix(data, "askdel|")
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			fmt.Sprintf("⚠️ Are you sure?\n\n🌐 %s", fqdn), confirmDeleteKeyboard(fqdn))
		b.send(edit)

	case data == "cancel":
		b.send(tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, "❌ Operation cancelled."))

	case strings.HasPrefix(data, "confirm|"):
		fqdn := strings.TrimPrefix(data, "confirm|")
		if err := b.domains.Delete(ctx, user, fqdn); err != nil {
			b.send(tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, b.renderError(uid, err)))
			return
		}
		b.send(tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, "🗑️ Deleted:\n"+fqdn))

	case strings.HasPrefix(data, "rebind|"):
		fqdn := strings.TrimPrefix(data, "rebind|")
		b.state.SetPending(chatID, PendingRebindIP, fqdn)
		b.sendText(chatID, "🔁 Send the new IP for:\n"+fqdn)

	case strings.HasPrefix(data, "lang|"):
		locale := strings.TrimPrefix(data, "lang|")
		if locale != "en" && locale != "ar" {
			return
		}
		if err := b.users.SetLocale(ctx, uid, locale); err != nil {
			b.log.Error("set locale", "err", err)
			return
		}
		b.sendWithKeyboard(chatID, "✅ Language updated.", mainKeyboard(b.isOperator(uid)))
	}
}

// ================== Guards ==================

// guard enforces the three access preconditions for end users: the service
// is enabled, the user is not banned, and the forced-membership gate passes.
// The operator bypasses all three.
func (b *Bot) guard(ctx context.Context, chatID int64, user *models.User, showJoinPrompt bool) bool {
	if b.isOperator(user.ID) {
		return true
	}

	enabled, err := b.settings.BotEnabled(ctx)
	if err != nil {
		b.log.Error("read bot status", "err", err)
		return false
	}
	if !enabled {
		b.sendText(chatID, "⛔ The bot is temporarily paused.\nPlease try again later.")
		return false
	}
	if user.Banned {
		b.sendText(chatID, "⛔ You are banned from using this bot.")
		return false
	}

	ok, _ := b.isSubscribed(ctx, user.ID)
	if !ok {
		channels, _ := b.settings.ForceChannels(ctx)
		if showJoinPrompt && len(channels) > 0 {
			out := tgbotapi.NewMessage(chatID, "🔒 You must join the required channel(s) first.\n\nAfter joining press ✅ Check Subscription.")
			out.ReplyMarkup = forceJoinKeyboard(channels)
			b.send(out)
		}
		return false
	}
	return true
}

// isSubscribed checks membership in every forced channel. A check error on
// any channel counts as not subscribed and forwards the reason to the
// operator, since the usual cause is a misconfigured channel or missing bot
// admin rights.
func (b *Bot) isSubscribed(ctx context.Context, userID int64) (bool, string) {
	if b.isOperator(userID) {
		return true, ""
	}
	channels, err := b.settings.ForceChannels(ctx)
	if err != nil {
		b.log.Error("read force channels", "err", err)
		return false, err.Error()
	}
	if len(channels) == 0 {
		return true, ""
	}

	for _, ch := range channels {
		member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				SuperGroupUsername: ch,
				UserID:             userID,
			},
		})
		if err != nil {
			b.log.Error("subscription check failed", "channel", ch, "user_id", userID, "err", err)
			if b.cfg.AdminID != 0 {
				b.sendText(b.cfg.AdminID, fmt.Sprintf(
					"⚠️ Subscription check error\nChannel: %s\nUser: %d\nReason: %s\n\n✅ Verify: channel is public, name is correct, bot is admin.",
					ch, userID, err.Error(),
				))
			}
			return false, fmt.Sprintf("%s | error=%s", ch, err.Error())
		}
		switch strings.ToLower(member.Status) {
		case "member", "administrator", "creator":
			continue
		default:
			return false, fmt.Sprintf("%s | status=%s", ch, member.Status)
		}
	}
	return true, ""
}

// ================== Rendering helpers ==================

// renderError maps service errors to user-facing text. DNS provider detail is
// only shown verbatim to the operator; end users get a generic message.
func (b *Bot) renderError(userID int64, err error) string {
	var dnsErr *cloudflare.DNSError
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		return "❌ You reached today's limit. Try again tomorrow."
	case errors.Is(err, service.ErrNotOwner):
		return "❌ No such subdomain on your account."
	case errors.Is(err, service.ErrServiceDisabled):
		return "⛔ The bot is temporarily paused.\nPlease try again later."
	case errors.Is(err, service.ErrUserBanned):
		return "⛔ You are banned from using this bot."
	case errors.Is(err, service.ErrEmptyIP):
		return "❌ The IP address must not be empty."
	case errors.As(err, &dnsErr):
		if b.isOperator(userID) {
			return "⚠️ DNS provider error:\n" + dnsErr.Error()
		}
		return "⚠️ The DNS provider rejected the request. Please try again later."
	default:
		b.log.Error("request failed", "err", err)
		return "⚠️ Something went wrong, please try again later."
	}
}

func renderNS(records []service.NSInfo) string {
	lines := make([]string, 0, len(records))
	for _, ns := range records {
		lines = append(lines, fmt.Sprintf("🧷 NS: %s → %s", ns.Name, ns.Value))
	}
	return strings.Join(lines, "\n")
}

func parseReferralArg(arg string) (int64, bool) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, "ref_") {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "ref_"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard any) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = keyboard
	b.send(out)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("send message", "err", err)
	}
}
