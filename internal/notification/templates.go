package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/queue"
)

var confirmedHTML = template.Must(template.New("confirmed").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.5;">
  <h2>Hi {{.Name}},</h2>
  <p>Your booking for <strong style="color: #F84565;">{{.Movie}}</strong> is confirmed.</p>
  <p><strong>Date:</strong> {{.Date}}<br/><strong>Time:</strong> {{.Time}}<br/><strong>Seats:</strong> {{.Seats}}<br/><strong>Total:</strong> {{.Amount}}</p>
  <p>Enjoy the show!</p>
</div>`))

var showAddedHTML = template.Must(template.New("show_added").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Hi {{.Name}},</h2>
  <p>New screenings of <strong style="color: #F84565;">{{.Movie}}</strong> were just added:</p>
  <ul>{{range .Times}}<li>{{.}}</li>{{end}}</ul>
</div>`))

type confirmedView struct {
	Name, Movie, Date, Time, Seats, Amount string
}

type showAddedView struct {
	Name, Movie string
	Times       []string
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func confirmationMessage(to, name string, ev queue.BookingConfirmedEvent) (Message, error) {
	v := confirmedView{
		Name:   displayName(name),
		Movie:  ev.MovieTitle,
		Date:   ev.StartsAt.UTC().Format("Mon, 02 Jan 2006"),
		Time:   ev.StartsAt.UTC().Format("15:04 MST"),
		Seats:  strings.Join(ev.Seats, ", "),
		Amount: formatCents(ev.AmountCents),
	}
	var html bytes.Buffer
	if err := confirmedHTML.Execute(&html, v); err != nil {
		return Message{}, err
	}
	text := fmt.Sprintf("Hi %s,\n\nYour booking for %s on %s at %s is confirmed.\nSeats: %s\nTotal: %s\n",
		v.Name, v.Movie, v.Date, v.Time, v.Seats, v.Amount)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Payment Confirmation: %q booked!", ev.MovieTitle),
		Text:    text,
		HTML:    html.String(),
	}, nil
}

func showAddedMessage(to, name string, ev queue.ShowAddedEvent) (Message, error) {
	times := make([]string, 0, len(ev.StartsAt))
	for _, t := range ev.StartsAt {
		times = append(times, t.UTC().Format(time.RFC1123))
	}
	v := showAddedView{Name: displayName(name), Movie: ev.MovieTitle, Times: times}
	var html bytes.Buffer
	if err := showAddedHTML.Execute(&html, v); err != nil {
		return Message{}, err
	}
	text := fmt.Sprintf("Hi %s,\n\nNew screenings of %s were just added:\n- %s\n",
		v.Name, v.Movie, strings.Join(times, "\n- "))
	return Message{
		To:      to,
		Subject: "New Show Added: " + ev.MovieTitle,
		Text:    text,
		HTML:    html.String(),
	}, nil
}
