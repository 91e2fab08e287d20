package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"salonbook/internal/api"
	"salonbook/internal/gallery"
)

func (b *Bot) handleGallery(ctx context.Context, f *flow, args []string) {
	var err error
	title := "📸 Gallery"
	switch {
	case len(args) == 0:
		err = f.gallery.Load(ctx, api.ImageFilter{})
	case strings.EqualFold(args[0], "featured"):
		title = "📸 Featured work"
		err = f.gallery.LoadFeatured(ctx)
	default:
		category := strings.Join(args, " ")
		title = "📸 Gallery: " + category
		err = f.gallery.Load(ctx, api.ImageFilter{Category: category})
	}
	if err != nil {
		// The gallery has already notified the chat.
		return
	}
	b.renderGallery(f, 0, 0, title)
}

func (b *Bot) renderGallery(f *flow, page, messageID int, title string) {
	images := f.gallery.Images()
	items := make([]pageItem, 0, len(images))
	for _, img := range images {
		items = append(items, pageItem{
			Text: imageLine(img),
			Buttons: []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData("🔍 "+img.Title, fmt.Sprintf("img:%d", img.ID)),
				tgbotapi.NewInlineKeyboardButtonData("❤️", fmt.Sprintf("like:%d", img.ID)),
			},
		})
	}
	b.renderPage(pageParams{
		ChatID:     f.chatID,
		MessageID:  messageID,
		Page:       page,
		Title:      title,
		Empty:      "No photos yet.",
		Items:      items,
		PagePrefix: "gpage:",
	})
}

func (b *Bot) handleGalleryPage(f *flow, messageID int, data string) {
	page, err := strconv.Atoi(strings.TrimPrefix(data, "gpage:"))
	if err != nil {
		return
	}
	b.renderGallery(f, page, messageID, "📸 Gallery")
}

func imageLine(img api.Image) string {
	line := fmt.Sprintf("%s ❤️ %d 👁 %d", img.Title, img.Likes, img.Views)
	if img.IsFeatured {
		line = "⭐ " + line
	}
	return line
}

// handleImageCallback opens a photo and counts the view.
func (b *Bot) handleImageCallback(ctx context.Context, f *flow, data string) {
	id, ok := parseID(data, "img:")
	if !ok {
		return
	}
	if _, err := f.gallery.View(ctx, id); err != nil && errors.Is(err, gallery.ErrUnknownImage) {
		b.reply(f.chatID, "This photo is no longer listed. Open /gallery again.")
		return
	}
	img, ok := f.gallery.Image(id)
	if !ok {
		return
	}

	caption := imageLine(img)
	if img.Description != "" {
		caption += "\n" + img.Description
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❤️ Like", fmt.Sprintf("like:%d", img.ID)),
	))
	if img.ImageURL == "" {
		msg := tgbotapi.NewMessage(f.chatID, caption)
		msg.ReplyMarkup = kb
		b.send(msg)
		return
	}
	photo := tgbotapi.NewPhoto(f.chatID, tgbotapi.FileURL(img.ImageURL))
	photo.Caption = caption
	photo.ReplyMarkup = kb
	b.send(photo)
}

func (b *Bot) handleLikeCallback(ctx context.Context, f *flow, data string) {
	id, ok := parseID(data, "like:")
	if !ok {
		return
	}
	n, err := f.gallery.Like(ctx, id)
	switch {
	case err == nil:
		b.reply(f.chatID, fmt.Sprintf("❤️ Thanks! %d likes.", n))
	case errors.Is(err, gallery.ErrAlreadyLiked):
		b.reply(f.chatID, "You already liked this photo.")
	case errors.Is(err, gallery.ErrUnknownImage):
		b.reply(f.chatID, "This photo is no longer listed. Open /gallery again.")
	}
	// Request failures were rolled back and reported by the gallery.
}
