// Package notify pushes reports to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"adsdash/agent-app/agents"
)

// Telegram rejects messages longer than 4096 characters.
const maxMessageRunes = 4000

// Bot is the part of the Telegram API the sender needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory creates bots; tests replace it.
type BotFactory func(token, apiEndpoint string, client *http.Client) (Bot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (Bot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return bot, nil
}

type Telegram struct {
	bot    Bot
	chatID int64
	logger *zap.Logger
}

// NewTelegram connects with token. It fails when the token is rejected.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	bot, err := defaultBotFactory(token, tgbotapi.APIEndpoint, http.DefaultClient)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return NewTelegramWithBot(bot, chatID, logger), nil
}

func NewTelegramWithBot(bot Bot, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

// Notify sends text, split on line breaks into messages Telegram accepts.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	for i, chunk := range split(text, maxMessageRunes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, chunk)); err != nil {
			return fmt.Errorf("send telegram message %d: %w", i+1, err)
		}
	}
	t.logger.Info("telegram_notified", zap.Int64("chat_id", t.chatID), zap.Int("chars", utf8.RuneCountInString(text)))
	return nil
}

// split cuts s into chunks of at most limit runes, preferring the last
// newline inside each chunk.
func split(s string, limit int) []string {
	var chunks []string
	for s != "" {
		runes := []rune(s)
		if len(runes) <= limit {
			chunks = append(chunks, s)
			break
		}
		chunk := string(runes[:limit])
		if idx := strings.LastIndex(chunk, "\n"); idx > 0 {
			chunk = chunk[:idx]
		}
		chunks = append(chunks, chunk)
		s = strings.TrimPrefix(s[len(chunk):], "\n")
	}
	return chunks
}

// DailyDigest renders a daily check result as a plain text message.
func DailyDigest(r *agents.DailyCheckResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 每日廣告檢查 %s\n", r.CheckDate)
	fmt.Fprintf(&sb, "健康分數：%d/100\n", r.HealthScore)
	fmt.Fprintf(&sb, "活動數：%d｜總花費：%.0f｜平均 ROAS：%.2f\n", r.TotalCampaigns, r.TotalSpend, r.AverageROAS)
	if r.EstimatedRiskAmount > 0 {
		fmt.Fprintf(&sb, "風險金額：%.0f\n", r.EstimatedRiskAmount)
	}
	if r.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Summary)
	}
	if len(r.UrgentIssues) > 0 {
		sb.WriteString("\n⚠️ 緊急問題\n")
		for _, issue := range r.UrgentIssues {
			fmt.Fprintf(&sb, "• %s\n", issue)
		}
	}
	if len(r.ProblemCampaigns) > 0 {
		sb.WriteString("\n問題活動\n")
		for _, p := range r.ProblemCampaigns {
			fmt.Fprintf(&sb, "• %s（%s）ROAS %.2f，花費 %.0f：%s\n", p.CampaignName, p.Severity, p.ROAS, p.Spend, p.IssueType)
		}
	}
	if len(r.Recommendations) > 0 {
		sb.WriteString("\n建議\n")
		for i, rec := range r.Recommendations {
			fmt.Fprintf(&sb, "%d. [%s] %s：%s\n", i+1, rec.Priority, rec.Target, rec.Action)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
