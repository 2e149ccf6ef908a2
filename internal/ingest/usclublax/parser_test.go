package usclublax

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"single digit month and day", "3/4/2024", "2024-03-04", true},
		{"double digit month and day", "11/23/2024", "2024-11-23", true},
		{"surrounding whitespace", "  9/7/2023  ", "2023-09-07", true},
		{"iso date rejected", "2024-03-04", "", false},
		{"two digit year rejected", "3/4/24", "", false},
		{"embedded date rejected", "played on 3/4/2024", "", false},
		{"plain text", "Rival Club", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TryParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyRow(t *testing.T) {
	game := ClassifyRow([]string{"3/4/2024", "Rival University Club Lacrosse", "Spring Invitational", "W 12-7"}, 5)
	require.NotNil(t, game)

	assert.Equal(t, 5, game.RowIndex)
	assert.Equal(t, "2024-03-04", game.GameDate)
	assert.Equal(t, "W", game.Result)
	assert.Equal(t, 12, game.TeamScore)
	assert.Equal(t, 7, game.OpponentScore)
	assert.Equal(t, "Rival University Club Lacrosse", game.OpponentName)
	assert.Equal(t, "Spring Invitational", game.EventName)
}

func TestClassifyRowLowercaseResult(t *testing.T) {
	game := ClassifyRow([]string{"10/12/2023", "Northern State", "Fall Classic Tournament", "l 5 - 9"}, 0)
	require.NotNil(t, game)

	assert.Equal(t, "L", game.Result)
	assert.Equal(t, 5, game.TeamScore)
	assert.Equal(t, 9, game.OpponentScore)
}

func TestClassifyRowNoResult(t *testing.T) {
	// Future game: no result cell yet, row is dropped.
	assert.Nil(t, ClassifyRow([]string{"3/4/2024", "Rival University", "Spring Invitational", "TBD"}, 0))
}

func TestClassifyRowTooFewCells(t *testing.T) {
	assert.Nil(t, ClassifyRow([]string{"W 12-7", "Rival"}, 0))
	assert.Nil(t, ClassifyRow(nil, 0))
}

func TestClassifyRowMissingDate(t *testing.T) {
	game := ClassifyRow([]string{"Rival University Club", "Spring Invitational Weekend", "T 8-8"}, 2)
	require.NotNil(t, game)

	assert.Empty(t, game.GameDate)
	assert.Equal(t, "T", game.Result)
	assert.Equal(t, "Spring Invitational Weekend", game.OpponentName)
	assert.Equal(t, "Rival University Club", game.EventName)
}

func TestClassifyRowFallbackNames(t *testing.T) {
	// Only a date and a result: no free-text cells remain after
	// classification, so the placeholder names apply.
	game := ClassifyRow([]string{"3/4/2024", "W 12-7", "vs"}, 0)
	require.NotNil(t, game)

	assert.Equal(t, "vs", game.OpponentName)
	assert.Equal(t, "Unknown Event", game.EventName)
}

func TestClassifyRowOpponentLongestCell(t *testing.T) {
	// Longest remaining cell becomes the opponent regardless of order.
	game := ClassifyRow([]string{"Cup", "A Much Longer Opponent Name", "5/6/2024", "L 3-11"}, 0)
	require.NotNil(t, game)

	assert.Equal(t, "A Much Longer Opponent Name", game.OpponentName)
	assert.Equal(t, "Cup", game.EventName)
}

func TestExtractGradYear(t *testing.T) {
	assert.Equal(t, 2025, extractGradYear("State University Club Lacrosse (2025)"))
	assert.Equal(t, 0, extractGradYear("State University Club Lacrosse"))
	assert.Equal(t, 0, extractGradYear("State University (25)"))
}

func TestExternalTeamID(t *testing.T) {
	id, err := ExternalTeamID("https://usclublax.com/schedule?t=1234&s=9")
	require.NoError(t, err)
	assert.Equal(t, "1234", id)

	_, err = ExternalTeamID("https://usclublax.com/schedule?s=9")
	assert.Error(t, err)

	_, err = ExternalTeamID("://bad")
	assert.Error(t, err)
}

const schedulePageHTML = `<!DOCTYPE html>
<html>
<head><title>usclublax.com</title></head>
<body>
<h1>US Club Lacrosse</h1>
<h2>State University Club Lacrosse (2025)</h2>
<table id="games_table">
  <thead><tr><th>Date</th><th>Opponent</th><th>Event</th><th>Result</th></tr></thead>
  <tbody>
    <tr><td>3/4/2024</td><td>Rival University Club Lacrosse</td><td>Spring Invitational</td><td>W 12-7</td></tr>
    <tr><td>3/5/2024</td><td>Northern State</td><td>Spring Invitational</td><td>L 6-10</td></tr>
    <tr><td>4/1/2024</td><td>Coastal College</td><td>Conference Play</td><td>TBD</td></tr>
  </tbody>
</table>
</body>
</html>`

func TestParseSchedule(t *testing.T) {
	doc, err := ParseHTML(schedulePageHTML)
	require.NoError(t, err)

	schedule := ParseSchedule(doc)
	assert.Equal(t, "State University Club Lacrosse (2025)", schedule.TeamName)
	assert.Equal(t, 2025, schedule.GradYear)
	require.Len(t, schedule.Games, 2) // TBD row dropped

	assert.Equal(t, "Rival University Club Lacrosse", schedule.Games[0].OpponentName)
	assert.Equal(t, "2024-03-04", schedule.Games[0].GameDate)
	assert.Equal(t, "Northern State", schedule.Games[1].OpponentName)
	assert.Equal(t, "L", schedule.Games[1].Result)
}

func TestParseScheduleHeaderFallback(t *testing.T) {
	// No #games_table id; the first table whose headers mention an
	// opponent and a result column wins.
	html := `<html><body>
<h2>Coastal College Lacrosse</h2>
<table>
  <tr><th>Standing</th><th>Points</th></tr>
  <tbody><tr><td>3rd</td><td>42</td></tr></tbody>
</table>
<table>
  <tr><th>Date</th><th>Opponent</th><th>Score</th></tr>
  <tbody>
    <tr><td>9/7/2023</td><td>River City Lacrosse Club</td><td>W 9-4</td></tr>
  </tbody>
</table>
</body></html>`

	doc, err := ParseHTML(html)
	require.NoError(t, err)

	schedule := ParseSchedule(doc)
	assert.Equal(t, "Coastal College Lacrosse", schedule.TeamName)
	assert.Equal(t, 0, schedule.GradYear)
	require.Len(t, schedule.Games, 1)
	assert.Equal(t, "River City Lacrosse Club", schedule.Games[0].OpponentName)
	assert.Equal(t, "2023-09-07", schedule.Games[0].GameDate)
}

func TestParseScheduleNoGamesTable(t *testing.T) {
	doc, err := ParseHTML(`<html><body><h2>Quiet Team</h2><p>No schedule posted.</p></body></html>`)
	require.NoError(t, err)

	schedule := ParseSchedule(doc)
	assert.Equal(t, "Quiet Team", schedule.TeamName)
	assert.Empty(t, schedule.Games)
}

func TestExtractTeamNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"h2 preferred", `<html><head><title>site</title></head><body><h1>Site</h1><h2>The Team</h2></body></html>`, "The Team"},
		{"h1 fallback", `<html><head><title>site</title></head><body><h1>The Team</h1></body></html>`, "The Team"},
		{"title fallback", `<html><head><title>The Team</title></head><body></body></html>`, "The Team"},
		{"nothing", `<html><body></body></html>`, "Unknown Team"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseHTML(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, extractTeamName(doc))
		})
	}
}

func TestExtractCellsCollapsesWhitespace(t *testing.T) {
	doc, err := ParseHTML(`<table><tbody><tr><td>  Rival
	University  </td><td></td><td>W 12-7</td></tr></tbody></table>`)
	require.NoError(t, err)

	row := doc.Find("tr").First()
	cells := extractCells(row)
	require.Len(t, cells, 2) // empty cell dropped
	assert.Equal(t, "Rival University", cells[0])
	assert.False(t, strings.Contains(cells[0], "\n"))
}
