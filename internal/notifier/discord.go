package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/ruestzeit/anmeldung/internal/models"
)

// DiscordNotifier mirrors registration notifications into a Discord channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

// NewDiscordSession opens a bot session for token.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	return discordgo.New("Bot " + token)
}

func (n *DiscordNotifier) NotifyRegistration(ctx context.Context, event models.Event, registration models.Registration) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, DiscordMessage(event, registration), discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}

// DiscordMessage formats the channel message for registration.
func DiscordMessage(event models.Event, registration models.Registration) string {
	status := "Teilnehmer"
	if registration.Status == models.StatusWaitlist {
		status = "Warteliste ⏳"
	}

	landkreis := ""
	if registration.Landkreis != nil {
		landkreis = fmt.Sprintf("\n**Landkreis:** %s", *registration.Landkreis)
	}

	notes := ""
	if registration.Notes != "" {
		notes = fmt.Sprintf("\n**Anmerkungen:** %s", registration.Notes)
	}

	return fmt.Sprintf("📝 **Neue Anmeldung: %s**\n**Name:** %s %s\n**Status:** %s\n**Nr.:** %d%s%s",
		event.Title,
		registration.Firstname,
		registration.Lastname,
		status,
		registration.RegistrationPosition,
		landkreis,
		notes,
	)
}
