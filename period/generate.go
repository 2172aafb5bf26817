package period

import (
	"sort"
	"time"

	"github.com/warp/casual-pay/payroll"
	"github.com/warp/casual-pay/tax"
)

// =============================================================================
// PERIOD GENERATION - Pay-cycle rules to concrete windows
// =============================================================================

// Length is the number of days in each of an employer's pay periods.
// PayPeriodDays wins when set; otherwise the cadence's nominal length.
// Monthly cadence ignores both and follows calendar months.
func Length(e payroll.EmployerProfile) (int, error) {
	if e.PayCycle == payroll.CadenceMonthly {
		return 0, nil
	}
	if e.PayPeriodDays > 0 {
		return e.PayPeriodDays, nil
	}
	if n := e.PayCycle.NominalDays(); n > 0 {
		return n, nil
	}
	return 0, &tax.UnsupportedCadenceError{Cadence: e.PayCycle}
}

// PayDateFor returns the first payday strictly after end. A period that
// ends on payday is paid a week later.
func PayDateFor(end payroll.Date, payday time.Weekday) payroll.Date {
	ahead := (int(payday) - int(end.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return end.AddDays(ahead)
}

// AnchorOn returns the most recent start weekday on or before d.
func AnchorOn(d payroll.Date, start time.Weekday) payroll.Date {
	back := (int(d.Weekday()) - int(start) + 7) % 7
	return d.AddDays(-back)
}

func newPeriod(e payroll.EmployerProfile, start, end payroll.Date) payroll.PayPeriod {
	return payroll.PayPeriod{
		EmployerID: e.ID,
		StartDate:  start,
		EndDate:    end,
		PayDate:    PayDateFor(end, e.Payday),
	}
}

// next returns the period immediately after p.
func next(e payroll.EmployerProfile, p payroll.PayPeriod, days int) payroll.PayPeriod {
	start := p.EndDate.AddDays(1)
	if days == 0 {
		return newPeriod(e, start, payroll.EndOfMonth(start))
	}
	return newPeriod(e, start, start.AddDays(days-1))
}

// prev returns the period immediately before p.
func prev(e payroll.EmployerProfile, p payroll.PayPeriod, days int) payroll.PayPeriod {
	end := p.StartDate.AddDays(-1)
	if days == 0 {
		return newPeriod(e, payroll.StartOfMonth(end), end)
	}
	return newPeriod(e, end.AddDays(-(days - 1)), end)
}

// Generate returns contiguous periods from the one containing first up to
// the one containing last. Weekly and fortnightly periods start on the
// employer's PayPeriodStart weekday; monthly periods are calendar months.
func Generate(e payroll.EmployerProfile, first, last payroll.Date) ([]payroll.PayPeriod, error) {
	days, err := Length(e)
	if err != nil {
		return nil, err
	}
	if last.Before(first) {
		first, last = last, first
	}

	var p payroll.PayPeriod
	if days == 0 {
		p = newPeriod(e, payroll.StartOfMonth(first), payroll.EndOfMonth(first))
	} else {
		start := AnchorOn(first, e.PayPeriodStart)
		p = newPeriod(e, start, start.AddDays(days-1))
	}

	out := []payroll.PayPeriod{p}
	for p.EndDate.Before(last) {
		p = next(e, p, days)
		out = append(out, p)
	}
	return out, nil
}

// Cover returns existing plus whatever periods are needed so that every
// date falls inside one, sorted by start date. Existing periods are kept
// as they are. New periods extend the run backwards and forwards from the
// existing ones; a date in a gap between two existing periods gets
// periods continuing from the earlier one, cut short at the later one.
func Cover(existing []payroll.PayPeriod, e payroll.EmployerProfile, dates []payroll.Date) ([]payroll.PayPeriod, error) {
	if len(dates) == 0 {
		return sortPeriods(append([]payroll.PayPeriod(nil), existing...)), nil
	}
	days, err := Length(e)
	if err != nil {
		return nil, err
	}

	first, last := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	if len(existing) == 0 {
		return Generate(e, first, last)
	}

	out := sortPeriods(append([]payroll.PayPeriod(nil), existing...))

	for head := out[0]; first.Before(head.StartDate); {
		head = prev(e, head, days)
		out = append([]payroll.PayPeriod{head}, out...)
	}
	for tail := out[len(out)-1]; last.After(tail.EndDate); {
		tail = next(e, tail, days)
		out = append(out, tail)
	}

	for _, d := range dates {
		if covered(out, d) {
			continue
		}
		i := sort.Search(len(out), func(i int) bool { return out[i].StartDate.After(d) })
		// out[i-1] ends before d and out[i] starts after it.
		p := out[i-1]
		limit := out[i].StartDate.AddDays(-1)
		var fill []payroll.PayPeriod
		for p.EndDate.Before(d) {
			p = next(e, p, days)
			if p.EndDate.After(limit) {
				p.EndDate = limit
				p.PayDate = PayDateFor(limit, e.Payday)
			}
			fill = append(fill, p)
		}
		out = sortPeriods(append(out, fill...))
	}
	return out, nil
}

func covered(periods []payroll.PayPeriod, d payroll.Date) bool {
	for _, p := range periods {
		if p.Contains(d) {
			return true
		}
	}
	return false
}

func sortPeriods(ps []payroll.PayPeriod) []payroll.PayPeriod {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].StartDate.Before(ps[j].StartDate) })
	return ps
}
