package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
)

func sampleSummary() *core.DigestSummary {
	return &core.DigestSummary{
		BrandID:        "brand-1",
		BrandName:      "CiteGap",
		WindowStart:    time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC),
		WindowEnd:      time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC),
		TotalScans:     12,
		MentionedScans: 5,
		MemosGenerated: 2,
		TopCompetitors: []core.CompetitorMentionCount{{Name: "Acme", Count: 4}},
		StreakMilestones: []core.StreakMilestone{
			{QueryText: "best crm for realtors", Streak: 6},
		},
	}
}

func TestRenderActiveDay(t *testing.T) {
	html, err := Render(sampleSummary())
	require.NoError(t, err)

	assert.Contains(t, html, "CiteGap")
	assert.Contains(t, html, "<strong>12</strong> scans")
	assert.Contains(t, html, "Acme (4)")
	assert.Contains(t, html, "cited 6 scans in a row")
	assert.NotContains(t, html, "quiet day")
}

func TestRenderQuietDayIsDistinct(t *testing.T) {
	s := &core.DigestSummary{BrandName: "CiteGap", QuietDay: true,
		WindowStart: time.Now().Add(-24 * time.Hour), WindowEnd: time.Now()}
	html, err := Render(s)
	require.NoError(t, err)

	assert.Contains(t, html, "Nothing is broken")
	assert.NotContains(t, html, "scans,")
}

func TestDeliverSendsMail(t *testing.T) {
	var sent *gomail.Message
	m := New(config.Email{Enabled: true, From: "digest@citegap.example.com", To: "team@example.com"})
	m.send = func(msg *gomail.Message) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.Deliver(context.Background(), sampleSummary()))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"team@example.com"}, sent.GetHeader("To"))
	assert.Contains(t, sent.GetHeader("Subject")[0], "12 scans")
}

func TestDeliverDisabledIsNoOp(t *testing.T) {
	m := New(config.Email{Enabled: false})
	m.send = func(*gomail.Message) error {
		t.Fatal("send must not be called when disabled")
		return nil
	}
	assert.NoError(t, m.Deliver(context.Background(), sampleSummary()))
}
