package fixtures

import (
	"fmt"
	"math/rand"
	"time"
)

var sampleNames = []string{
	"Maya Chen", "Jonas Berg", "Priya Nair", "Tom Okafor", "Lena Fischer",
	"Ravi Patel", "Sofia Marques", "Daniel Kim", "Ingrid Olsen", "Omar Haddad",
}

var sampleActions = []string{
	"created", "updated", "deleted", "commented on", "shared", "archived",
}

var sampleTargets = []string{
	"Q3 report", "launch checklist", "billing settings", "user group",
	"marketing campaign", "support ticket #4821", "release notes",
}

var eventColors = []string{"blue", "green", "orange", "purple", "red"}

var documentTypes = []string{"pdf", "doc", "sheet", "slide"}

// generate builds the full canned dataset from a deterministic seed. The
// clock anchors relative timestamps so lists look current on every start.
func generate(seed int64, now time.Time) *dataset {
	rng := rand.New(rand.NewSource(seed))

	d := &dataset{
		stats: DashboardStats{
			TotalUsers:     1200 + rng.Intn(800),
			ActiveSessions: 40 + rng.Intn(200),
			Revenue:        50000 + rng.Float64()*150000,
			GrowthRate:     -5 + rng.Float64()*25,
			OpenTickets:    rng.Intn(40),
			Conversion:     1 + rng.Float64()*7,
		},
		settings: Settings{
			Language:           "en",
			Timezone:           "UTC",
			DateFormat:         "YYYY-MM-DD",
			EmailNotifications: true,
			PushNotifications:  false,
			WeeklyDigest:       true,
		},
		profile: Profile{
			DisplayName: "Demo Admin",
			Email:       "demo@example.com",
			Title:       "Operations Lead",
			Bio:         "Keeps the dashboard tidy.",
			Location:    "Remote",
		},
	}

	for i := 0; i < 20; i++ {
		d.activities = append(d.activities, Activity{
			ID:        fmt.Sprintf("act-%03d", i+1),
			User:      sampleNames[rng.Intn(len(sampleNames))],
			Action:    sampleActions[rng.Intn(len(sampleActions))],
			Target:    sampleTargets[rng.Intn(len(sampleTargets))],
			Timestamp: now.Add(-time.Duration(rng.Intn(72)) * time.Hour),
		})
	}

	for i := 0; i < 12; i++ {
		start := now.AddDate(0, 0, rng.Intn(28)-7).Truncate(time.Hour)
		allDay := rng.Intn(4) == 0
		end := start.Add(time.Duration(1+rng.Intn(3)) * time.Hour)
		if allDay {
			end = start.Add(24 * time.Hour)
		}
		d.events = append(d.events, CalendarEvent{
			ID:     fmt.Sprintf("evt-%03d", i+1),
			Title:  fmt.Sprintf("Meeting: %s", sampleTargets[rng.Intn(len(sampleTargets))]),
			Start:  start,
			End:    end,
			AllDay: allDay,
			Color:  eventColors[rng.Intn(len(eventColors))],
		})
	}

	for i := 0; i < 25; i++ {
		d.documents = append(d.documents, Document{
			ID:        fmt.Sprintf("doc-%03d", i+1),
			Name:      fmt.Sprintf("%s %d", sampleTargets[rng.Intn(len(sampleTargets))], i+1),
			Type:      documentTypes[rng.Intn(len(documentTypes))],
			SizeBytes: int64(1024 * (10 + rng.Intn(5000))),
			Owner:     sampleNames[rng.Intn(len(sampleNames))],
			UpdatedAt: now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour),
		})
	}

	folders := []string{"Projects", "Finance", "Design", "Archive"}
	for i, name := range folders {
		d.files = append(d.files, FileEntry{
			ID:        fmt.Sprintf("dir-%03d", i+1),
			Name:      name,
			Kind:      "folder",
			Path:      "/" + name,
			UpdatedAt: now.Add(-time.Duration(rng.Intn(60*24)) * time.Hour),
		})
	}
	for i := 0; i < 18; i++ {
		folder := folders[rng.Intn(len(folders))]
		name := fmt.Sprintf("file-%02d.%s", i+1, documentTypes[rng.Intn(len(documentTypes))])
		d.files = append(d.files, FileEntry{
			ID:        fmt.Sprintf("file-%03d", i+1),
			Name:      name,
			Kind:      "file",
			SizeBytes: int64(1024 * (1 + rng.Intn(20000))),
			Path:      "/" + folder + "/" + name,
			UpdatedAt: now.Add(-time.Duration(rng.Intn(60*24)) * time.Hour),
		})
	}

	noticeTypes := []string{"info", "success", "warning", "error"}
	for i := 0; i < 10; i++ {
		d.notices = append(d.notices, Notice{
			ID:        fmt.Sprintf("ntc-%03d", i+1),
			Title:     fmt.Sprintf("Update on %s", sampleTargets[rng.Intn(len(sampleTargets))]),
			Message:   "There is new activity that may need your attention.",
			Type:      noticeTypes[rng.Intn(len(noticeTypes))],
			Read:      i >= 4,
			CreatedAt: now.Add(-time.Duration(rng.Intn(7*24)) * time.Hour),
		})
	}

	for i := 0; i < 6; i++ {
		other := sampleNames[rng.Intn(len(sampleNames))]
		conv := Conversation{
			ID:           fmt.Sprintf("cnv-%03d", i+1),
			Title:        other,
			Participants: []string{"Demo Admin", other},
			Unread:       rng.Intn(3),
			UpdatedAt:    now.Add(-time.Duration(rng.Intn(48)) * time.Hour),
		}
		for j := 0; j < 4+rng.Intn(6); j++ {
			sender := conv.Participants[rng.Intn(2)]
			msg := Message{
				ID:             fmt.Sprintf("msg-%03d-%02d", i+1, j+1),
				ConversationID: conv.ID,
				Sender:         sender,
				Body:           fmt.Sprintf("Quick note about %s.", sampleTargets[rng.Intn(len(sampleTargets))]),
				SentAt:         conv.UpdatedAt.Add(-time.Duration(60-j*10) * time.Minute),
			}
			d.messages = append(d.messages, msg)
			conv.LastMessage = msg.Body
		}
		d.conversations = append(d.conversations, conv)
	}

	return d
}
