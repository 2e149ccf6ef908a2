package usclublax

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	dateRe       = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	resultRe     = regexp.MustCompile(`(?i)\b([WLT])\b`)
	scoreRe      = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	gradYearRe   = regexp.MustCompile(`\((\d{4})\)`)
)

// GameRecord is one normalized game row extracted from a schedule page.
// A record is only emitted when a result letter and a score pair were
// both found in some cell; RawCells keeps the original cell texts for
// auditability and forms part of the dedup key material.
type GameRecord struct {
	RowIndex      int      `json:"row_index"`
	OpponentName  string   `json:"opponent_name"`
	EventName     string   `json:"event_name"`
	GameDate      string   `json:"game_date,omitempty"` // canonical YYYY-MM-DD, empty if absent
	Result        string   `json:"result"`              // W, L or T
	TeamScore     int      `json:"team_score"`
	OpponentScore int      `json:"opponent_score"`
	RawCells      []string `json:"raw_cells"`
}

// Schedule is the parsed content of one team schedule page.
type Schedule struct {
	TeamName string
	GradYear int // 0 when the team name carries no (YYYY) suffix
	Games    []GameRecord
}

// ParseSchedule extracts the team name, grad year and game records from a
// schedule page. An empty Games slice means the page had no games table or
// no qualifying rows; that is not an error.
func ParseSchedule(doc *goquery.Document) *Schedule {
	name := extractTeamName(doc)

	schedule := &Schedule{
		TeamName: name,
		GradYear: extractGradYear(name),
	}

	locateGameRows(doc).Each(func(i int, row *goquery.Selection) {
		cells := extractCells(row)
		if game := ClassifyRow(cells, i); game != nil {
			schedule.Games = append(schedule.Games, *game)
		}
	})

	return schedule
}

// locateGameRows finds the body rows of the games table. The well-known
// #games_table id wins when present and non-empty; otherwise the first
// table in document order whose headers mention an opponent column and a
// result or score column is used.
func locateGameRows(doc *goquery.Document) *goquery.Selection {
	rows := doc.Find("table#games_table tbody tr")
	if rows.Length() > 0 {
		return rows
	}

	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		var hasOpponent, hasResult bool
		table.Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := strings.ToLower(collapseWhitespace(cell.Text()))
			if strings.Contains(text, "opponent") {
				hasOpponent = true
			}
			if strings.Contains(text, "result") || strings.Contains(text, "score") {
				hasResult = true
			}
		})

		if hasOpponent && hasResult {
			found = table.Find("tbody tr")
			return false
		}
		return true
	})

	if found == nil {
		return doc.Find("table#games_table tbody tr") // empty selection
	}
	return found
}

// extractCells returns the trimmed, whitespace-collapsed, non-empty cell
// texts of a table row in order.
func extractCells(row *goquery.Selection) []string {
	var cells []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		text := collapseWhitespace(cell.Text())
		if text != "" {
			cells = append(cells, text)
		}
	})
	return cells
}

// ClassifyRow assigns semantic fields to a row's cell texts by heuristic
// rather than column position, since the source site's field order varies.
// Returns nil for rows that are not games (fewer than 3 cells, or no cell
// carrying both a result letter and a score pair).
func ClassifyRow(cells []string, rowIndex int) *GameRecord {
	if len(cells) < 3 {
		return nil
	}

	dateIdx := -1
	gameDate := ""
	for i, cell := range cells {
		if d, ok := TryParseDate(cell); ok {
			dateIdx = i
			gameDate = d
			break
		}
	}

	resultIdx := -1
	var result string
	var teamScore, oppScore int
	for i, cell := range cells {
		if i == dateIdx {
			continue
		}
		r, ts, os, ok := parseResultScore(cell)
		if ok {
			resultIdx = i
			result, teamScore, oppScore = r, ts, os
			break
		}
	}

	// No result cell means this row is not a completed game.
	if resultIdx == -1 {
		return nil
	}

	var remaining []string
	for i, cell := range cells {
		if i != dateIdx && i != resultIdx {
			remaining = append(remaining, cell)
		}
	}

	// Opponent and event names are typically the longest free-text cells.
	// Known to misclassify when names are short; preserved as-is to match
	// previously ingested data shapes.
	sort.SliceStable(remaining, func(a, b int) bool {
		return len(remaining[a]) > len(remaining[b])
	})

	opponent := "Unknown Opponent"
	event := "Unknown Event"
	if len(remaining) > 0 {
		opponent = remaining[0]
	}
	if len(remaining) > 1 {
		event = remaining[1]
	}

	return &GameRecord{
		RowIndex:      rowIndex,
		OpponentName:  opponent,
		EventName:     event,
		GameDate:      gameDate,
		Result:        result,
		TeamScore:     teamScore,
		OpponentScore: oppScore,
		RawCells:      cells,
	}
}

// TryParseDate converts an M/D/YYYY cell to canonical zero-padded
// YYYY-MM-DD. Returns false when the cell is not a date.
func TryParseDate(s string) (string, bool) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%s-%02d-%02d", m[3], month, day), true
}

// parseResultScore extracts the result letter and score pair from a cell.
// A cell only qualifies when both a standalone W/L/T and a number-dash-number
// pattern are present; the team score comes first.
func parseResultScore(text string) (result string, teamScore, oppScore int, ok bool) {
	clean := collapseWhitespace(text)

	r := resultRe.FindStringSubmatch(clean)
	s := scoreRe.FindStringSubmatch(clean)
	if r == nil || s == nil {
		return "", 0, 0, false
	}

	teamScore, _ = strconv.Atoi(s[1])
	oppScore, _ = strconv.Atoi(s[2])
	return strings.ToUpper(r[1]), teamScore, oppScore, true
}

// extractTeamName derives the team name once per page: the first non-empty
// secondary heading, then primary heading, then document title.
func extractTeamName(doc *goquery.Document) string {
	for _, sel := range []string{"h2", "h1", "title"} {
		if text := collapseWhitespace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return "Unknown Team"
}

// extractGradYear pulls a 4-digit parenthesized suffix out of the team
// name, e.g. "State University (2025)" -> 2025. Returns 0 when absent.
func extractGradYear(name string) int {
	m := gradYearRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	year, _ := strconv.Atoi(m[1])
	return year
}

// ExternalTeamID extracts the source site's team identifier from the
// required t= query parameter of a schedule URL.
func ExternalTeamID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	id := u.Query().Get("t")
	if id == "" {
		return "", fmt.Errorf("url missing required t= team parameter: %s", rawURL)
	}

	return id, nil
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
