// Package sender delivers rendered images to a Telegram chat.
//
// A whole album is uploaded in one multipart request: sendMediaGroup for
// two to ten photos, sendPhoto for a single one. The first photo carries
// the caption. The sender never retries; a failed upload is reported to
// the caller as is, because a duplicated album is worse than a missing one.
//
// # Usage
//
//	s := sender.NewTelegramSender(http.DefaultClient, sender.Options{BotToken: token})
//	err := s.SendPhotos(ctx, chatID, []sender.Photo{
//	    {Data: png1, Name: "rows_1-40.png", Caption: "Weekly report"},
//	    {Data: png2, Name: "rows_41-80.png"},
//	})
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package sender
