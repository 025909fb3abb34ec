// Package calendar creates class events with meeting links in teachers' external calendars.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/noah-isme/lms-booking-api/internal/models"
)

// ProviderGoogle identifies Google-backed calendar accounts.
const ProviderGoogle = "google"

// GoogleConfig holds the OAuth client used to refresh teachers' tokens.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

// GoogleProvider creates Google Calendar events with an attached Meet conference.
type GoogleProvider struct {
	oauth   *oauth2.Config
	options []option.ClientOption
}

// NewGoogleProvider constructs the provider. Extra client options are appended to every service
// and mostly serve to point the client at a test server.
func NewGoogleProvider(cfg GoogleConfig, opts ...option.ClientOption) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
		options: opts,
	}
}

// CreateEvent inserts the event into the account's calendar and returns its id and Meet link.
func (p *GoogleProvider) CreateEvent(ctx context.Context, account *models.CalendarAccount, req models.CalendarEventRequest) (*models.CalendarEvent, error) {
	if account == nil {
		return nil, fmt.Errorf("calendar account is required")
	}
	if account.Provider != "" && account.Provider != ProviderGoogle {
		return nil, fmt.Errorf("unsupported calendar provider %q", account.Provider)
	}

	ts := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, p.options...)
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}

	calendarID := account.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	created, err := srv.Events.Insert(calendarID, buildEvent(req)).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	event := &models.CalendarEvent{EventID: created.Id, MeetLink: created.HangoutLink}
	if event.MeetLink == "" && created.ConferenceData != nil {
		for _, ep := range created.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				event.MeetLink = ep.Uri
				break
			}
		}
	}
	return event, nil
}

func buildEvent(req models.CalendarEventRequest) *gcal.Event {
	var attendees []*gcal.EventAttendee
	for _, email := range []string{req.StudentEmail, req.TeacherEmail} {
		if email != "" {
			attendees = append(attendees, &gcal.EventAttendee{Email: email})
		}
	}
	return &gcal.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.StartTime.UTC().Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: req.EndTime.UTC().Format(time.RFC3339)},
		Attendees:   attendees,
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
}
