package bot

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-planner/internal/conversation"
	"task-planner/internal/model"
	"task-planner/internal/service"
)

const (
	listDateLayout     = "02.01 15:04"
	listDescriptionMax = 50
	listTitleMax       = 80
	reminderDescMax    = 30
	pickerRowSize      = 5
)

// messageBudget keeps list messages under Telegram's 4096 UTF-16 unit limit.
const messageBudget = 3800

func mainMenuKeyboard(withWeb bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
		),
	}
	second := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuLabelReminders))
	if withWeb {
		second = append(second, tgbotapi.NewKeyboardButton(menuLabelWeb))
	}
	rows = append(rows, second)

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.CancelLabel)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.SkipLabel)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.CancelLabel)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func listActionsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Удалить задачу", cbGoToDelete),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Сменить статус", cbGoToToggle),
		),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", cbBackToMenu)),
	)
}

// pickerKeyboard numbers tasks in list order, pickerRowSize buttons per row.
func pickerKeyboard(tasks []model.Task, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", i+1), fmt.Sprintf("%s%d", prefix, task.ID)))
		if len(row) == pickerRowSize {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", cbBackToMenu)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func webKeyboard(baseURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🚀 Открыть планировщик", baseURL+"/")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📋 Создать задачу", baseURL+"/tasks/create/"),
			tgbotapi.NewInlineKeyboardButtonURL("📊 Все задачи", baseURL+"/tasks/"),
		),
	)
}

func formatTaskList(tasks []model.Task, loc *time.Location) string {
	return "📋 <b>Все задачи:</b>\n\n" + formatTaskLines(tasks, loc, listDescriptionMax)
}

// formatTaskLines renders numbered task lines; descMax 0 hides descriptions.
// Lines that would overflow the message are replaced by a remainder count.
func formatTaskLines(tasks []model.Task, loc *time.Location, descMax int) string {
	var sb strings.Builder
	used := 0
	for i, task := range tasks {
		var line strings.Builder
		fmt.Fprintf(&line, "%d. %s <b>%s</b>", i+1, task.Status.Icon(), escape(shortText(task.Title, listTitleMax)))
		if task.DueDate != nil {
			fmt.Fprintf(&line, " 📅 %s", task.DueDate.In(loc).Format(listDateLayout))
		}
		line.WriteString("\n")
		if descMax > 0 && task.Description != "" {
			fmt.Fprintf(&line, "   📝 %s\n", escape(shortText(task.Description, descMax)))
		}

		size := visibleLen(line.String())
		if used+size > messageBudget {
			fmt.Fprintf(&sb, "… и ещё %d", len(tasks)-i)
			break
		}
		used += size
		sb.WriteString(line.String())
	}
	return strings.TrimRight(sb.String(), "\n")
}

// visibleLen is the length Telegram counts: UTF-16 units of the text without markup.
func visibleLen(value string) int {
	return len(utf16.Encode([]rune(stripTags(value))))
}

func formatCreated(task model.Task, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString("✅ <b>Задача создана!</b>\n\n")
	fmt.Fprintf(&sb, "📝 <i>%s</i>\n", escape(task.Title))
	if task.Description != "" {
		fmt.Fprintf(&sb, "📄 %s\n", escape(task.Description))
	}
	if task.DueDate != nil {
		fmt.Fprintf(&sb, "📅 %s", task.DueDate.In(loc).Format(service.DisplayLayout))
	} else {
		sb.WriteString("📅 Без срока")
	}
	return sb.String()
}

func formatReminders(r service.Reminders, now time.Time, loc *time.Location) string {
	if r.Empty() {
		return "✅ Нет напоминаний!"
	}

	var sb strings.Builder
	sb.WriteString("⏰ <b>Напоминания:</b>\n")
	if len(r.Overdue) > 0 {
		sb.WriteString("\n⚠️ <b>Просроченные:</b>\n")
		for _, task := range r.Overdue {
			fmt.Fprintf(&sb, "❗ <b>%s</b>\n   📅 %s\n", escape(task.Title), task.DueDate.In(loc).Format(listDateLayout))
		}
	}
	if len(r.Upcoming) > 0 {
		sb.WriteString("\n⏳ <b>Скоро (до 24ч):</b>\n")
		for _, task := range r.Upcoming {
			fmt.Fprintf(&sb, "📝 <b>%s</b> - %dч\n   📅 %s\n",
				escape(task.Title), service.HoursLeft(*task.DueDate, now), task.DueDate.In(loc).Format(listDateLayout))
			if task.Description != "" {
				fmt.Fprintf(&sb, "   %s\n", escape(shortText(task.Description, reminderDescMax)))
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func shortText(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

func escape(value string) string {
	return html.EscapeString(value)
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripTags turns an HTML reply into plain text for callback toasts.
func stripTags(value string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(value, ""))
}
