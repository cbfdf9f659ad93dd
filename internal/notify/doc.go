// Package notify delivers notices to users over external channels.
//
// A Dispatcher fans each notice out to every registered Channel in a
// detached goroutine. Callers never wait on delivery and never see its
// errors: failures are logged wrapped in ErrDispatchFailed.
//
// Channels:
//   - TelegramChannel sends Markdown messages through the Bot API to users
//     who linked a chat and left Telegram notifications on.
//   - MQTTChannel publishes the notice as JSON on smartegg/notify/{user_id}
//     for external bridges (email, push).
//
// Bot answers the chat commands users send to the Telegram bot.
package notify
