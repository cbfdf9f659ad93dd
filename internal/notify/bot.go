package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smartegg/smartegg-core/internal/actuator"
	"github.com/smartegg/smartegg-core/internal/alert"
	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/lifecycle"
)

// recentAlertCount is how many alerts /alertas lists.
const recentAlertCount = 5

// BotAPI is the part of *tgbotapi.BotAPI the command bot uses.
type BotAPI interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ChatUsers maps a Telegram chat to the account that linked it.
type ChatUsers interface {
	// UserIDByTelegramChat returns ok false when no account linked chatID.
	UserIDByTelegramChat(ctx context.Context, chatID int64) (userID string, ok bool, err error)
}

// BotStores are the read models behind the bot's commands.
type BotStores struct {
	Users       ChatUsers
	Incubations interface {
		ListByUser(ctx context.Context, userID string) ([]incubation.Incubation, error)
	}
	Readings interface {
		Latest(ctx context.Context, incubationID string) (*incubation.Reading, error)
	}
	Actuators interface {
		Get(ctx context.Context, incubationID string) (*actuator.Actuator, error)
	}
	Alerts interface {
		Recent(ctx context.Context, userID string, n int) ([]alert.Alert, error)
	}
}

// BotInfo is shown by /info.
type BotInfo struct {
	Version string
	WebURL  string
}

// Bot answers chat commands.
type Bot struct {
	api    BotAPI
	stores BotStores
	info   BotInfo
	loc    *time.Location
	logger Logger
}

// NewBot creates a command bot. Timestamps are shown in loc, or UTC when nil.
func NewBot(api BotAPI, stores BotStores, info BotInfo, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.UTC
	}
	return &Bot{api: api, stores: stores, info: info, loc: loc, logger: noopLogger{}}
}

// SetLogger sets the logger for the bot.
func (b *Bot) SetLogger(logger Logger) {
	b.logger = logger
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("telegram bot listening for commands")
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.Handle(ctx, update.Message.Chat.ID, update.Message.Command())
		}
	}
}

// Handle answers one command sent from chatID.
func (b *Bot) Handle(ctx context.Context, chatID int64, command string) {
	text, err := b.reply(ctx, chatID, command)
	if err != nil {
		b.logger.Error("telegram command failed", "command", command, "chat_id", chatID, "error", err)
	}
	if text == "" {
		return
	}
	if err := sendMarkdown(b.api, chatID, text); err != nil {
		b.logger.Warn("telegram reply failed", "command", command, "chat_id", chatID, "error", err)
	}
}

const notLinkedReply = "❌ No estás vinculado. Usa /vincular para conectar tu cuenta."

func (b *Bot) reply(ctx context.Context, chatID int64, command string) (string, error) {
	switch command {
	case "start":
		return startReply, nil
	case "vincular":
		return fmt.Sprintf(linkReply, chatID), nil
	case "ayuda":
		return helpReply, nil
	case "info":
		return b.infoReply(), nil
	case "estado":
		text, err := b.statusReply(ctx, chatID)
		if err != nil {
			return "❌ Error al obtener el estado. Intenta de nuevo.", err
		}
		return text, nil
	case "alertas":
		text, err := b.alertsReply(ctx, chatID)
		if err != nil {
			return "❌ Error al obtener alertas. Intenta de nuevo.", err
		}
		return text, nil
	}
	return "", nil
}

const startReply = `🐣 *¡Bienvenido a SmartEgg Bot!*

Soy tu asistente de incubación inteligente.

*Comandos disponibles:*
/vincular - Vincular este chat con tu cuenta
/estado - Ver estado de tu incubadora
/alertas - Ver alertas recientes
/ayuda - Ver todos los comandos
/info - Información del sistema

¡Empecemos! Usa /vincular para conectar tu cuenta.`

const linkReply = "🔗 *Vincular cuenta*\n\n" +
	"Para vincular tu cuenta de SmartEgg:\n\n" +
	"1. Ve a tu perfil en la aplicación web\n" +
	"2. En \"Chat ID de Telegram\" ingresa: `%d`\n" +
	"3. Guarda los cambios\n\n" +
	"Una vez vinculado, recibirás todas las notificaciones aquí."

const helpReply = `📚 *Comandos Disponibles:*

/start - Iniciar el bot
/vincular - Obtener instrucciones para vincular tu cuenta
/estado - Ver estado actual de tu incubadora
/alertas - Ver últimas alertas
/info - Información del sistema
/ayuda - Ver esta ayuda

*Notificaciones automáticas:*
• Recibirás alertas cuando la temperatura esté fuera de rango
• Notificación cuando el nivel de agua esté bajo
• Avisos de cambio de etapa
• Confirmación de volteo de huevos

🔗 ¿Problemas? Asegúrate de estar vinculado con /vincular`

func (b *Bot) infoReply() string {
	var sb strings.Builder
	sb.WriteString("ℹ️ *SmartEgg Bot - Información*\n\n")
	sb.WriteString("*Sistema:* Incubadora Inteligente IoT\n")
	fmt.Fprintf(&sb, "*Versión:* %s\n\n", escapeMarkdown(b.info.Version))
	sb.WriteString("*Características:*\n")
	sb.WriteString("• Monitoreo en tiempo real\n")
	sb.WriteString("• Alertas inteligentes\n")
	sb.WriteString("• Registro de volteo de huevos\n")
	fmt.Fprintf(&sb, "• %d días de incubación", lifecycle.IncubationDays)
	if b.info.WebURL != "" {
		fmt.Fprintf(&sb, "\n\n🌐 *Acceso Web:*\n%s", b.info.WebURL)
	}
	return sb.String()
}

var stageEmojis = map[int]string{
	lifecycle.StageWarming:     "🥚",
	lifecycle.StageDevelopment: "🐣",
	lifecycle.StageMaturation:  "🥚",
	lifecycle.StageHatching:    "🐥",
}

func (b *Bot) linkedUser(ctx context.Context, chatID int64) (string, bool, error) {
	userID, ok, err := b.stores.Users.UserIDByTelegramChat(ctx, chatID)
	if err != nil {
		return "", false, fmt.Errorf("resolving chat: %w", err)
	}
	return userID, ok, nil
}

// statusReply describes the user's newest active incubation.
func (b *Bot) statusReply(ctx context.Context, chatID int64) (string, error) {
	userID, ok, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !ok {
		return notLinkedReply, nil
	}

	incs, err := b.stores.Incubations.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("listing incubations: %w", err)
	}
	var inc *incubation.Incubation
	for i := range incs {
		if incs[i].Status == incubation.StatusActive {
			inc = &incs[i]
			break
		}
	}
	if inc == nil {
		return "📭 No tienes incubaciones activas.", nil
	}

	reading, err := b.stores.Readings.Latest(ctx, inc.ID)
	if err != nil && !errors.Is(err, incubation.ErrNoReadings) {
		return "", fmt.Errorf("loading latest reading: %w", err)
	}
	act, err := b.stores.Actuators.Get(ctx, inc.ID)
	if err != nil {
		return "", fmt.Errorf("loading actuator: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *Estado de %s*\n\n", escapeMarkdown(inc.Name))
	sb.WriteString("*Progreso:*\n")
	fmt.Fprintf(&sb, "📅 Día: %d/%d\n", inc.DaysElapsed, lifecycle.IncubationDays)
	fmt.Fprintf(&sb, "%s Etapa: %s\n", stageEmojis[inc.Stage], inc.StageName)
	fmt.Fprintf(&sb, "🥚 Huevos: %d\n\n", inc.NumberOfEggs)

	sb.WriteString("*Sensores:*\n")
	if reading != nil {
		fmt.Fprintf(&sb, "🌡 Temperatura: %s°C\n", alert.FormatValue(reading.Temperature))
		fmt.Fprintf(&sb, "💧 Humedad: %s%%\n", alert.FormatValue(reading.Humidity))
		fmt.Fprintf(&sb, "💨 Gas: %s ppm\n", alert.FormatValue(reading.GasLevel))
		fmt.Fprintf(&sb, "💦 Agua: %s\n\n", reading.WaterLevel)
	} else {
		sb.WriteString("🌡 Temperatura: --°C\n💧 Humedad: --%\n💨 Gas: -- ppm\n💦 Agua: --\n\n")
	}

	sb.WriteString("*Actuadores:*\n")
	fmt.Fprintf(&sb, "%s Calefactor: %s\n", pick(act.HeaterActive, "🔥", "❄️"), onOff(act.HeaterActive))
	fmt.Fprintf(&sb, "%s Ventilación: %s\n", pick(act.VentilationActive, "💨", "🔇"), onOff(act.VentilationActive))
	fmt.Fprintf(&sb, "🔄 Volteos: %d\n\n", act.EggTurnCount)

	updated := "N/A"
	if reading != nil {
		updated = reading.Timestamp.In(b.loc).Format(displayTimeLayout)
	}
	fmt.Fprintf(&sb, "_Última actualización: %s_", updated)
	return sb.String(), nil
}

// alertsReply lists the user's most recent alerts.
func (b *Bot) alertsReply(ctx context.Context, chatID int64) (string, error) {
	userID, ok, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !ok {
		return notLinkedReply, nil
	}

	alerts, err := b.stores.Alerts.Recent(ctx, userID, recentAlertCount)
	if err != nil {
		return "", fmt.Errorf("loading alerts: %w", err)
	}
	if len(alerts) == 0 {
		return "✅ No hay alertas recientes. ¡Todo está bien!", nil
	}

	var sb strings.Builder
	sb.WriteString("🔔 *Últimas Alertas:*\n\n")
	for _, a := range alerts {
		fmt.Fprintf(&sb, "%s *%s*\n", severityEmoji(a.Severity), a.Title)
		fmt.Fprintf(&sb, "   %s\n", a.Message)
		fmt.Fprintf(&sb, "   _%s_\n\n", a.CreatedAt.In(b.loc).Format("02/01 15:04"))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func onOff(on bool) string {
	return pick(on, "ON", "OFF")
}
