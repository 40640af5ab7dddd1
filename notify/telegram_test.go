package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsdash/agent-app/agents"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func TestNotifySendsToChat(t *testing.T) {
	bot := &fakeBot{}
	tg := NewTelegramWithBot(bot, 42, nil)

	require.NoError(t, tg.Notify(context.Background(), "今日檢查完成"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, "今日檢查完成", bot.sent[0].Text)
}

func TestNotifySplitsLongMessages(t *testing.T) {
	bot := &fakeBot{}
	tg := NewTelegramWithBot(bot, 42, nil)

	line := strings.Repeat("廣", 99)
	text := strings.TrimSuffix(strings.Repeat(line+"\n", 90), "\n")
	require.NoError(t, tg.Notify(context.Background(), text))

	require.Len(t, bot.sent, 3)
	var joined []string
	for _, m := range bot.sent {
		assert.LessOrEqual(t, utf8.RuneCountInString(m.Text), maxMessageRunes)
		assert.False(t, strings.HasPrefix(m.Text, "\n"))
		joined = append(joined, m.Text)
	}
	assert.Equal(t, text, strings.Join(joined, "\n"))
}

func TestSplitWithoutNewlines(t *testing.T) {
	chunks := split(strings.Repeat("a", 25), 10)
	assert.Equal(t, []string{"aaaaaaaaaa", "aaaaaaaaaa", "aaaaa"}, chunks)
	assert.Nil(t, split("", 10))
}

func TestNotifyReportsSendFailure(t *testing.T) {
	tg := NewTelegramWithBot(&fakeBot{err: errors.New("forbidden")}, 42, nil)
	err := tg.Notify(context.Background(), "hi")
	assert.ErrorContains(t, err, "forbidden")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewTelegramWithBot(&fakeBot{}, 42, nil).Notify(ctx, "hi"), context.Canceled)
}

func TestNewTelegramUsesFactory(t *testing.T) {
	_, err := NewTelegram("", 1, nil)
	assert.Error(t, err)
	_, err = NewTelegram("token", 0, nil)
	assert.Error(t, err)

	saved := defaultBotFactory
	t.Cleanup(func() { defaultBotFactory = saved })
	bot := &fakeBot{}
	defaultBotFactory = func(token, endpoint string, _ *http.Client) (Bot, error) {
		assert.Equal(t, "token", token)
		assert.Equal(t, tgbotapi.APIEndpoint, endpoint)
		return bot, nil
	}
	tg, err := NewTelegram("token", 7, nil)
	require.NoError(t, err)
	require.NoError(t, tg.Notify(context.Background(), "ok"))
	assert.Len(t, bot.sent, 1)
}

func TestDailyDigest(t *testing.T) {
	digest := DailyDigest(&agents.DailyCheckResult{
		CheckDate:           "2024-07-10",
		TotalCampaigns:      4,
		TotalSpend:          12000,
		AverageROAS:         2.35,
		EstimatedRiskAmount: 3000,
		HealthScore:         62,
		Summary:             "冬季活動拖累整體 ROAS",
		UrgentIssues:        []string{"冬季暖心 ROAS 低於 1.5"},
		ProblemCampaigns: []agents.ProblemCampaign{
			{CampaignName: "冬季暖心", ROAS: 1.2, Spend: 8000, IssueType: "低 ROAS", Severity: "高"},
		},
		Recommendations: []agents.Recommendation{
			{Action: "降低預算 30%", Target: "冬季暖心", Priority: "高"},
		},
	})

	for _, want := range []string{
		"每日廣告檢查 2024-07-10",
		"健康分數：62/100",
		"平均 ROAS：2.35",
		"風險金額：3000",
		"• 冬季暖心 ROAS 低於 1.5",
		"• 冬季暖心（高）ROAS 1.20，花費 8000：低 ROAS",
		"1. [高] 冬季暖心：降低預算 30%",
	} {
		assert.Contains(t, digest, want)
	}
	assert.False(t, strings.HasSuffix(digest, "\n"))

	quiet := DailyDigest(&agents.DailyCheckResult{CheckDate: "2024-07-11", HealthScore: 90})
	assert.NotContains(t, quiet, "風險金額")
	assert.NotContains(t, quiet, "建議")
}
