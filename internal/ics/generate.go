package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/koyomi-dev/koyomi/internal/holiday"
)

// AWS SSM Change Calendar requires this exact product identifier; documents
// carrying any other PRODID are rejected by the service.
const awsProdID = "-//AWS//Change Calendar 1.0//EN"

const tokyoTZID = "Asia/Tokyo"

// Generator assembles AWS SSM Change Calendar ICS documents from holiday
// data. The zero value is usable.
type Generator struct {
	// ExcludeSundays drops holidays that fall on a Sunday. Change freezes
	// rarely matter on a day that is already non-working.
	ExcludeSundays bool

	// Now supplies DTSTAMP values; nil means time.Now. Injected in tests.
	Now func() time.Time
}

// Calendar builds the VCALENDAR component for the given holidays.
func (g *Generator) Calendar(holidays []holiday.Holiday) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, awsProdID)
	cal.Props.SetText("X-CALENDAR-TYPE", "DEFAULT_OPEN")
	cal.Props.SetText("X-WR-CALDESC", "")
	cal.Props.SetText("X-CALENDAR-CMEVENTS", "DISABLED")
	cal.Props.SetText("X-WR-TIMEZONE", tokyoTZID)

	cal.Children = append(cal.Children, tokyoTimezone())

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	stamp := now().UTC()

	for _, h := range g.filter(holidays) {
		cal.Children = append(cal.Children, holidayEvent(h, stamp))
	}
	return cal
}

// Encode renders the calendar for the given holidays as ICS text.
func (g *Generator) Encode(holidays []holiday.Holiday) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(g.Calendar(holidays)); err != nil {
		return "", fmt.Errorf("encoding change calendar: %w", err)
	}
	return buf.String(), nil
}

func (g *Generator) filter(holidays []holiday.Holiday) []holiday.Holiday {
	if !g.ExcludeSundays {
		return holidays
	}
	kept := make([]holiday.Holiday, 0, len(holidays))
	for _, h := range holidays {
		if h.Date.Weekday() == time.Sunday {
			continue
		}
		kept = append(kept, h)
	}
	return kept
}

// holidayEvent builds one all-day VEVENT: midnight to next midnight in
// Asia/Tokyo, the span SSM evaluates when deciding the calendar state.
func holidayEvent(h holiday.Holiday, stamp time.Time) *ical.Component {
	ev := ical.NewComponent(ical.CompEvent)

	name := strings.TrimSpace(h.Name)
	ev.Props.SetText(ical.PropSummary, "日本の祝日: "+name)
	ev.Props.SetText(ical.PropDescription, "日本の国民の祝日: "+name)
	ev.Props.SetText(ical.PropCategories, "Japanese-Holiday")
	ev.Props.SetText(ical.PropUID, EventUID(h.Date))

	ev.Props.Set(tokyoMidnight(ical.PropDateTimeStart, h.Date))
	ev.Props.Set(tokyoMidnight(ical.PropDateTimeEnd, h.Date.AddDate(0, 0, 1)))

	ds := ical.NewProp(ical.PropDateTimeStamp)
	ds.Value = stamp.Format("20060102T150405Z")
	ev.Props.Set(ds)

	return ev
}

// EventUID returns the deterministic identifier used for a holiday event,
// stable across regenerations so diffs line up by UID.
func EventUID(d time.Time) string {
	return fmt.Sprintf("jp-holiday-%s@aws-ssm-change-calendar", d.Format("20060102"))
}

func tokyoMidnight(name string, d time.Time) *ical.Prop {
	p := ical.NewProp(name)
	p.Params = ical.Params{ical.PropTimezoneID: []string{tokyoTZID}}
	p.Value = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Format("20060102T150405")
	return p
}

func tokyoTimezone() *ical.Component {
	tz := ical.NewComponent(ical.CompTimezone)
	tz.Props.SetText(ical.PropTimezoneID, tokyoTZID)

	std := ical.NewComponent(ical.CompTimezoneStandard)
	start := ical.NewProp(ical.PropDateTimeStart)
	start.Value = "19700101T000000"
	std.Props.Set(start)
	std.Props.SetText(ical.PropTimezoneOffsetFrom, "+0900")
	std.Props.SetText(ical.PropTimezoneOffsetTo, "+0900")
	std.Props.SetText(ical.PropTimezoneName, "JST")

	tz.Children = append(tz.Children, std)
	return tz
}
