package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"task-planner/internal/conversation"
	"task-planner/internal/repository"
	"task-planner/internal/service"
)

// ListLimit caps how many tasks a chat list shows.
const ListLimit = 50

const (
	cbGoToDelete   = "go_to_delete"
	cbGoToToggle   = "go_to_toggle"
	cbBackToMenu   = "back_to_menu"
	cbDeletePrefix = "delete_"
	cbTogglePrefix = "toggle_"
)

const (
	menuLabelTasks     = "📋 Все задачи"
	menuLabelNewTask   = "➕ Новая задача"
	menuLabelReminders = "⏰ Напоминания"
	menuLabelWeb       = "🌐 Веб-интерфейс"
)

// API is the subset of tgbotapi.BotAPI the bot relies on.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options carries the bot settings that are not collaborators.
type Options struct {
	NotifyChatID int64
	WebBaseURL   string
	Location     *time.Location
}

// Bot is the Telegram front-end over the task surface.
type Bot struct {
	api       API
	tasks     *service.TaskService
	reminders *service.ReminderService
	flow      *conversation.Flow
	opts      Options
	now       func() time.Time
}

// Dial authorizes against the Telegram API.
func Dial(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")
	return api, nil
}

func New(api API, tasks *service.TaskService, reminders *service.ReminderService, flow *conversation.Flow, opts Options) *Bot {
	if opts.Location == nil {
		opts.Location = tasks.Location()
	}
	opts.WebBaseURL = strings.TrimRight(opts.WebBaseURL, "/")
	return &Bot{
		api:       api,
		tasks:     tasks,
		reminders: reminders,
		flow:      flow,
		opts:      opts,
		now:       time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		log.Warn().Err(err).Msg("delete webhook")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}

	return ctx.Err()
}

// HandleUpdate processes one update; errors are logged, never fatal.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Error().Err(err).Msg("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Error().Err(err).Msg("handle message")
		}
	}
}

// Notify sends an overdue notification to the configured chat.
func (b *Bot) Notify(_ context.Context, text string) error {
	if b.opts.NotifyChatID == 0 {
		return fmt.Errorf("%w: no destination chat configured", service.ErrDelivery)
	}
	msg := tgbotapi.NewMessage(b.opts.NotifyChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", service.ErrDelivery, err)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	user := msg.From.ID

	if conversation.IsCancel(msg.Text) {
		b.flow.Cancel(user)
		return b.sendText(msg.Chat.ID, "❌ Отменено.")
	}

	if msg.IsCommand() {
		log.Info().Int64("user", user).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if b.flow.Active(user) {
		log.Debug().Int64("user", user).Stringer("step", b.flow.Step(user)).Msg("conversation step")
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Нажми «➕ Новая задача» или набери /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID)
	case "newtask":
		return b.startNewTaskConversation(msg)
	case "reminders":
		return b.handleReminders(ctx, msg.Chat.ID)
	case "delete":
		return b.handleDeleteCommand(ctx, msg)
	case "toggle":
		return b.handleToggleCommand(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelTasks:
		return true, b.sendTaskList(ctx, msg.Chat.ID)
	case menuLabelNewTask:
		return true, b.startNewTaskConversation(msg)
	case menuLabelReminders:
		return true, b.handleReminders(ctx, msg.Chat.ID)
	case menuLabelWeb:
		if b.opts.WebBaseURL == "" {
			return false, nil
		}
		return true, b.handleWebInterface(msg.Chat.ID)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	log.Info().Int64("user", msg.From.ID).Msg("bot started by user")
	text := "👋 Привет! Я бот для управления задачами.\n\n" +
		"📋 Функции:\n" +
		"• Просмотр, смена статуса и удаление задач\n" +
		"• Создание задач\n" +
		"• Автоматические напоминания о дедлайнах"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /tasks — все задачи\n" +
		"• /newtask — добавить задачу пошагово\n" +
		"• /reminders — просроченные и ближайшие задачи\n" +
		"• /toggle &lt;id&gt; — сменить статус задачи\n" +
		"• /delete &lt;id&gt; — удалить задачу\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startNewTaskConversation(msg *tgbotapi.Message) error {
	log.Info().Int64("user", msg.From.ID).Msg("start new task conversation")
	return b.renderReply(msg.Chat.ID, b.flow.Start(msg.From.ID))
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	reply, ok, err := b.flow.Handle(ctx, msg.From.ID, msg.Text)
	if err != nil {
		log.Error().Err(err).Int64("user", msg.From.ID).Msg("create task from conversation")
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Не удалось сохранить задачу: %s", escape(err.Error())), skipKeyboard())
	}
	if !ok {
		return b.sendText(msg.Chat.ID, "Диалог истёк. Нажми «➕ Новая задача», чтобы начать заново.")
	}
	if reply.Kind == conversation.Created {
		log.Info().Int64("user", msg.From.ID).Uint("task", reply.Task.ID).Msg("task created")
	}
	return b.renderReply(msg.Chat.ID, reply)
}

func (b *Bot) renderReply(chatID int64, reply conversation.Reply) error {
	switch reply.Kind {
	case conversation.AskTitle:
		return b.sendWithReplyMarkup(chatID, "➕ <b>Новая задача</b>\n\n📝 Введите название задачи:", cancelKeyboard())
	case conversation.AskDescription:
		return b.sendWithReplyMarkup(chatID, "📝 <b>Описание задачи</b>\n\nВведите описание или нажмите «Пропустить»:", skipKeyboard())
	case conversation.AskDueDate:
		return b.sendWithReplyMarkup(chatID, "📅 <b>Срок выполнения</b>\n\nФормат: ДД.ММ.ГГГГ ЧЧ:ММ\nНапример: 25.01.2026 14:30\n\n⏩ Пропустить — без срока", skipKeyboard())
	case conversation.InvalidDueDate:
		return b.sendWithReplyMarkup(chatID, "❌ Неверный формат!\n\nФормат: ДД.ММ.ГГГГ ЧЧ:ММ", skipKeyboard())
	case conversation.Cancelled:
		return b.sendText(chatID, "❌ Отменено.")
	case conversation.Created:
		return b.sendText(chatID, formatCreated(*reply.Task, b.opts.Location))
	default:
		return nil
	}
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	tasks, err := b.tasks.List(ctx, ListLimit)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "📭 Задач пока нет!")
	}
	return b.sendWithReplyMarkup(chatID, formatTaskList(tasks, b.opts.Location), listActionsKeyboard())
}

func (b *Bot) handleReminders(ctx context.Context, chatID int64) error {
	now := b.now()
	reminders, err := b.reminders.Reminders(ctx, now)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить напоминания: %s", escape(err.Error())))
	}
	return b.sendText(chatID, formatReminders(reminders, now, b.opts.Location))
}

func (b *Bot) handleWebInterface(chatID int64) error {
	text := "🌐 <b>Веб-интерфейс планировщика задач</b>\n\n" +
		"Перейдите по ссылке для работы через браузер:\n" +
		fmt.Sprintf("🔗 %s", escape(b.opts.WebBaseURL))
	return b.sendWithReplyMarkup(chatID, text, webKeyboard(b.opts.WebBaseURL))
}

func (b *Bot) handleDeleteCommand(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := strconv.ParseUint(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete 12")
	}
	text, err := b.deleteTask(ctx, uint(taskID))
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleToggleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := strconv.ParseUint(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /toggle 12")
	}
	text, err := b.toggleTask(ctx, uint(taskID))
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, text)
}

// deleteTask returns the user-facing outcome; only infrastructure failures are errors.
func (b *Bot) deleteTask(ctx context.Context, taskID uint) (string, error) {
	task, err := b.tasks.Get(ctx, taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return "Задача не найдена!", nil
	}
	if err != nil {
		return "", err
	}
	existed, err := b.tasks.Delete(ctx, taskID)
	if err != nil {
		return "", err
	}
	if !existed {
		return "Задача не найдена!", nil
	}
	log.Info().Uint("task", taskID).Msg("task deleted")
	return fmt.Sprintf("✅ Задача «%s» удалена!", escape(task.Title)), nil
}

func (b *Bot) toggleTask(ctx context.Context, taskID uint) (string, error) {
	task, err := b.tasks.CycleStatus(ctx, taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return "Задача не найдена!", nil
	}
	if err != nil {
		return "", err
	}
	log.Info().Uint("task", taskID).Str("status", string(task.Status)).Msg("task status changed")
	return fmt.Sprintf("%s Задача «%s»: %s", task.Status.Icon(), escape(task.Title), task.Status.Label()), nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Info().Int64("user", cb.From.ID).Str("data", data).Msg("callback")

	switch {
	case data == cbGoToDelete:
		b.ack(cb, "")
		return b.showPicker(ctx, cb.Message, "🗑️ <b>Выберите задачу для удаления:</b>", cbDeletePrefix)
	case data == cbGoToToggle:
		b.ack(cb, "")
		return b.showPicker(ctx, cb.Message, "🔄 <b>Выберите задачу для смены статуса:</b>", cbTogglePrefix)
	case data == cbBackToMenu:
		b.ack(cb, "")
		if err := b.editText(cb.Message, "🔙 Возврат в меню...", nil); err != nil {
			return err
		}
		return b.sendText(chatID, "🔹 Главное меню")
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.answerAndRefresh(ctx, cb, cbDeletePrefix, b.deleteTask)
	case strings.HasPrefix(data, cbTogglePrefix):
		return b.answerAndRefresh(ctx, cb, cbTogglePrefix, b.toggleTask)
	default:
		b.ack(cb, "")
		return nil
	}
}

func (b *Bot) answerAndRefresh(ctx context.Context, cb *tgbotapi.CallbackQuery, prefix string, action func(context.Context, uint) (string, error)) error {
	taskID, err := parseTaskID(cb.Data, prefix)
	if err != nil {
		b.ack(cb, "Задача не найдена!")
		return nil
	}
	text, err := action(ctx, taskID)
	if err != nil {
		b.ack(cb, "Ошибка, попробуйте позже")
		return err
	}
	b.ack(cb, stripTags(text))
	return b.sendTaskList(ctx, cb.Message.Chat.ID)
}

func (b *Bot) showPicker(ctx context.Context, msg *tgbotapi.Message, header, prefix string) error {
	tasks, err := b.tasks.List(ctx, ListLimit)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		back := backKeyboard()
		return b.editText(msg, "📭 Задач нет!", &back)
	}
	markup := pickerKeyboard(tasks, prefix)
	return b.editText(msg, header+"\n\n"+formatTaskLines(tasks, b.opts.Location, 0), &markup)
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		log.Warn().Err(err).Msg("callback ack")
	}
}

func (b *Bot) editText(msg *tgbotapi.Message, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard(b.opts.WebBaseURL != ""))
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// parseTaskID extracts the numeric id after prefix; anything else is rejected.
func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
