package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const itemsPerPage = 5

type pageItem struct {
	Text string
	// Buttons are shown in one row under the page text.
	Buttons []tgbotapi.InlineKeyboardButton
}

type pageParams struct {
	ChatID     int64
	MessageID  int // 0 if new message
	Page       int
	Title      string
	Empty      string
	Items      []pageItem
	PagePrefix string
}

func pageCount(n int) int {
	if n == 0 {
		return 1
	}
	return (n + itemsPerPage - 1) / itemsPerPage
}

func (b *Bot) renderPage(p pageParams) {
	pages := pageCount(len(p.Items))
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page >= pages {
		p.Page = pages - 1
	}
	startIdx := p.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > len(p.Items) {
		endIdx = len(p.Items)
	}

	var message strings.Builder
	message.WriteString(p.Title)
	message.WriteString("\n\n")
	if len(p.Items) == 0 {
		message.WriteString(p.Empty)
	} else if pages > 1 {
		message.WriteString(fmt.Sprintf("Page %d of %d\n\n", p.Page+1, pages))
	}

	var keyboard [][]tgbotapi.InlineKeyboardButton
	for i, item := range p.Items[startIdx:endIdx] {
		message.WriteString(fmt.Sprintf("%d. %s\n\n", startIdx+i+1, item.Text))
		if len(item.Buttons) > 0 {
			keyboard = append(keyboard, item.Buttons)
		}
	}

	var navButtons []tgbotapi.InlineKeyboardButton
	if p.Page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData(backLabel, fmt.Sprintf("%s%d", p.PagePrefix, p.Page-1)))
	}
	if endIdx < len(p.Items) {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("%s%d", p.PagePrefix, p.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}

	text := strings.TrimRight(message.String(), "\n")
	if p.MessageID != 0 {
		var edit tgbotapi.EditMessageTextConfig
		if len(keyboard) > 0 {
			edit = tgbotapi.NewEditMessageTextAndMarkup(p.ChatID, p.MessageID, text, tgbotapi.NewInlineKeyboardMarkup(keyboard...))
		} else {
			edit = tgbotapi.NewEditMessageText(p.ChatID, p.MessageID, text)
		}
		b.send(edit)
		return
	}
	msg := tgbotapi.NewMessage(p.ChatID, text)
	if len(keyboard) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}
	b.send(msg)
}
