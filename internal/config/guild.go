package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// GuildConfig is the static description of the guild the bot services.
// It is loaded once at startup and never mutated afterwards.
type GuildConfig struct {
	GuildID         string            `yaml:"guild_id"`
	TicketChannelID string            `yaml:"ticket_channel_id"`
	LogChannelID    string            `yaml:"log_channel_id"`
	Timezone        string            `yaml:"timezone"`
	EmbedTitle      string            `yaml:"embed_title"`
	EmbedText       string            `yaml:"embed_description"`
	Categories      []domain.Category `yaml:"categories"`

	location *time.Location
}

// LoadGuild reads the YAML guild file at path.
func LoadGuild(path string) (*GuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guild config %s: %w", path, err)
	}
	return ParseGuild(data)
}

// ParseGuild decodes a guild config document and applies defaults.
func ParseGuild(data []byte) (*GuildConfig, error) {
	var g GuildConfig
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse guild config: %w", err)
	}
	if g.Timezone == "" {
		g.Timezone = "UTC"
	}
	if g.EmbedTitle == "" {
		g.EmbedTitle = "Support Tickets"
	}
	return &g, nil
}

// Validate checks identifiers, timezone, and category uniqueness.
func (g *GuildConfig) Validate() error {
	ids := []struct{ name, id string }{
		{"guild_id", g.GuildID},
		{"ticket_channel_id", g.TicketChannelID},
		{"log_channel_id", g.LogChannelID},
	}
	for _, f := range ids {
		if err := validateSnowflake(f.name, f.id); err != nil {
			return err
		}
	}

	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return fmt.Errorf("config: timezone %q: %w", g.Timezone, err)
	}
	g.location = loc

	if len(g.Categories) == 0 {
		return errors.New("config: at least one ticket category is required")
	}
	seen := make(map[string]struct{}, len(g.Categories))
	for i, c := range g.Categories {
		if c.Key == "" {
			return fmt.Errorf("config: categories[%d]: key is required", i)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("config: duplicate category key %q", c.Key)
		}
		seen[c.Key] = struct{}{}
		if c.Label == "" {
			return fmt.Errorf("config: category %q: label is required", c.Key)
		}
		if err := validateSnowflake("category "+c.Key+" category_id", c.ParentID); err != nil {
			return err
		}
		if err := validateSnowflake("category "+c.Key+" team_role_id", c.StaffRoleID); err != nil {
			return err
		}
	}
	return nil
}

// Location returns the configured timezone, UTC before Validate succeeds.
func (g *GuildConfig) Location() *time.Location {
	if g.location == nil {
		return time.UTC
	}
	return g.location
}

// Category looks up a category by key.
func (g *GuildConfig) Category(key string) (domain.Category, bool) {
	for _, c := range g.Categories {
		if c.Key == key {
			return c, true
		}
	}
	return domain.Category{}, false
}

func validateSnowflake(name, id string) error {
	if id == "" {
		return fmt.Errorf("config: %s is required", name)
	}
	if _, err := snowflake.ParseString(id); err != nil {
		return fmt.Errorf("config: %s %q is not a snowflake id: %w", name, id, err)
	}
	return nil
}
