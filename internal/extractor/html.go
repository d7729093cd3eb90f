package extractor

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/villabot/villabot/internal/farm"
	"github.com/villabot/villabot/internal/village"
	"github.com/villabot/villabot/internal/villaerr"
)

var (
	numberRe = regexp.MustCompile(`[\d.]+`)
	digitsRe = regexp.MustCompile(`\d+`)
	rowIDRe  = regexp.MustCompile(`(\d+)`)
)

// HTMLExtractor is the default Extractor implementation, parsing game
// pages with goquery's CSS-selector API.
type HTMLExtractor struct{}

// New constructs an HTMLExtractor.
func New() *HTMLExtractor { return &HTMLExtractor{} }

func parseIntDE(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func (e *HTMLExtractor) Resources(html string) (village.Village, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return village.Village{}, villaerr.ErrExtraction
	}
	v := village.Village{Levels: map[string]int{}}
	v.Wood = parseIntDE(doc.Find("#wood").First().Text())
	v.Stone = parseIntDE(doc.Find("#stone").First().Text())
	v.Iron = parseIntDE(doc.Find("#iron").First().Text())
	v.Storage = parseIntDE(doc.Find("#storage").First().Text())
	v.Population = parseIntDE(doc.Find("#pop_current_label").First().Text())
	v.MaxPopulation = parseIntDE(doc.Find("#pop_max_label").First().Text())
	return v, nil
}

func (e *HTMLExtractor) BuildingLevels(html string) (map[string]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, villaerr.ErrExtraction
	}
	levels := make(map[string]int)
	doc.Find("[id^=main_buildrow_]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		building := strings.TrimPrefix(id, "main_buildrow_")
		levelText := s.Find(".level").First().Text()
		if m := digitsRe.FindString(levelText); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				levels[building] = n
			}
		}
	})
	return levels, nil
}

func (e *HTMLExtractor) BuildQueue(html string) ([]village.BuildQueueEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, villaerr.ErrExtraction
	}
	var entries []village.BuildQueueEntry
	doc.Find("#buildqueue tr[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		building := strings.TrimPrefix(id, "bq_")
		data, ok := s.Attr("data-endtime")
		if !ok {
			return
		}
		secs, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			return
		}
		entries = append(entries, village.BuildQueueEntry{
			Building:   building,
			FinishTime: time.Unix(secs, 0),
		})
	})
	return entries, nil
}

func (e *HTMLExtractor) TroopCounts(html string) (village.TroopCount, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, villaerr.ErrExtraction
	}
	counts := make(village.TroopCount)
	doc.Find("[data-unit]").Each(func(_ int, s *goquery.Selection) {
		unit, _ := s.Attr("data-unit")
		counts[unit] = parseIntDE(s.Text())
	})
	return counts, nil
}

func (e *HTMLExtractor) ScavengeOptions(html string) ([]village.TierStatus, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, villaerr.ErrExtraction
	}
	var statuses []village.TierStatus
	doc.Find(".scavenge-option").Each(func(i int, s *goquery.Selection) {
		tier := village.ScavengeTier(i + 1)
		status := village.TierStatus{Tier: tier}
		status.Locked = s.HasClass("locked")
		if endtime, ok := s.Attr("data-endtime"); ok {
			if secs, err := strconv.ParseInt(endtime, 10, 64); err == nil && secs > 0 {
				status.Running = true
				status.ReturnTime = time.Unix(secs, 0)
			}
		}
		statuses = append(statuses, status)
	})
	return statuses, nil
}

func (e *HTMLExtractor) IncomingAttacks(html string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, villaerr.ErrExtraction
	}
	text := doc.Find("#attack_count, .incomings-counter").First().Text()
	return parseIntDE(text), nil
}

// FarmRows parses the farm-assistant target row table, grounded on the
// original's FarmAssistantScreen.get_farm_list / _parse_haul.
func (e *HTMLExtractor) FarmRows(html string) ([]farm.Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, villaerr.ErrExtraction
	}
	var rows []farm.Row
	doc.Find("#plunder_list tbody tr").Each(func(_ int, s *goquery.Selection) {
		rowID, _ := s.Attr("id")
		m := rowIDRe.FindString(rowID)
		if m == "" {
			return
		}
		targetID, _ := strconv.Atoi(m)
		rows = append(rows, farm.Row{
			RowID:         rowID,
			TargetID:      targetID,
			EstimatedHaul: parseHaul(s),
		})
	})
	return rows, nil
}

// parseHaul implements the original's three-tier fallback chain exactly:
// a dedicated haul cell, then resource-icon spans, then a last-resort
// numeric scan of the row's later cells.
func parseHaul(row *goquery.Selection) int {
	if haul := row.Find(".expected-resources, td.haul, .estimate").First(); haul.Length() > 0 {
		total := 0
		for _, n := range numberRe.FindAllString(haul.Text(), -1) {
			total += parseIntDE(n)
		}
		return total
	}

	resNodes := row.Find("span.res, .icon-container + span")
	if resNodes.Length() > 0 {
		total := 0
		resNodes.Each(func(_ int, n *goquery.Selection) {
			text := strings.ReplaceAll(n.Text(), ".", "")
			if m := digitsRe.FindString(text); m != "" {
				if v, err := strconv.Atoi(m); err == nil {
					total += v
				}
			}
		})
		return total
	}

	cells := row.Find("td")
	if cells.Length() >= 6 {
		limit := cells.Length()
		if limit > 6 {
			limit = 6
		}
		for idx := 3; idx < limit; idx++ {
			cellText := cells.Eq(idx).Text()
			numbers := numberRe.FindAllString(cellText, -1)
			if len(numbers) < 2 {
				continue
			}
			total := 0
			for _, n := range numbers {
				if v := parseIntDE(n); v > 0 {
					total += v
				}
			}
			if total > 0 {
				return total
			}
		}
	}

	return 0
}

func (e *HTMLExtractor) ParseWorldConfigXML(data string) (village.WorldParameters, error) {
	var cfg struct {
		Speed float64 `xml:"speed"`
	}
	if err := xml.Unmarshal([]byte(data), &cfg); err != nil {
		return village.WorldParameters{}, villaerr.ErrExtraction
	}
	return village.WorldParameters{Speed: cfg.Speed, UnitCarry: map[string]int{}}, nil
}

// unitInfoXML mirrors the unit_info.xml layout: one named element per
// scavengeable unit, each carrying a <carry> figure.
type unitInfoXML struct {
	Units []struct {
		XMLName xml.Name
		Carry   int `xml:"carry"`
	} `xml:",any"`
}

func (e *HTMLExtractor) ParseUnitInfoXML(data string) (map[string]int, error) {
	var doc unitInfoXML
	if err := xml.Unmarshal([]byte(data), &doc); err != nil {
		return nil, villaerr.ErrExtraction
	}
	out := make(map[string]int, len(doc.Units))
	for _, u := range doc.Units {
		if u.Carry > 0 {
			out[u.XMLName.Local] = u.Carry
		}
	}
	return out, nil
}

func (e *HTMLExtractor) ParseMapVillageTXT(text string) ([]village.Village, error) {
	var villages []village.Village
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 7 {
			continue
		}
		id, _ := strconv.Atoi(fields[0])
		name := fields[1]
		x, _ := strconv.Atoi(fields[2])
		y, _ := strconv.Atoi(fields[3])
		points, _ := strconv.Atoi(fields[6])
		villages = append(villages, village.Village{
			ID: id, Name: name, X: x, Y: y, Points: points,
			Levels: map[string]int{},
		})
	}
	return villages, nil
}
