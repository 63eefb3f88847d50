package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CSVComma(t *testing.T) {
	data := []byte("Email,First,Last\na@x.com,Ann,Lee\nb@x.com,Bob,Ray\n")
	table, err := Parse("leads.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "First", "Last"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"a@x.com", "Ann", "Lee"}, table.Rows[0])
}

func TestParse_SniffsSemicolon(t *testing.T) {
	data := []byte("Email;First;Last\na@x.com;Ann;Lee\n")
	table, err := Parse("leads.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "First", "Last"}, table.Headers)
	require.Len(t, table.Rows, 1)
}

func TestParse_SniffsTabAndPipe(t *testing.T) {
	table, err := Parse("leads.txt", []byte("Email\tPhone\na@x.com\t555\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Phone"}, table.Headers)

	table, err = Parse("leads.txt", []byte("Email|Phone\na@x.com|555\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Phone"}, table.Headers)
}

func TestParse_SkipsBlankRowsAndBOM(t *testing.T) {
	data := []byte("\xEF\xBB\xBFEmail,Phone\na@x.com,555\n,\n\nb@x.com,556\n")
	table, err := Parse("leads.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "Email", table.Headers[0])
	assert.Len(t, table.Rows, 2)
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse("leads.csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse("leads.pdf", []byte("junk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = Parse("leads.xls", []byte("junk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xls")
}

func TestTable_Preview(t *testing.T) {
	table := &Table{Rows: [][]string{{"a"}, {"b"}, {"c"}}}
	assert.Len(t, table.Preview(2), 2)
	assert.Len(t, table.Preview(0), 3)
	assert.Len(t, table.Preview(10), 3)
}

func TestTable_RowMaps(t *testing.T) {
	table := &Table{
		Headers: []string{"Email", "Phone"},
		Rows:    [][]string{{"a@x.com", "555", "extra"}, {"b@x.com"}},
	}
	maps := table.RowMaps()
	require.Len(t, maps, 2)
	assert.Equal(t, "a@x.com", maps[0]["Email"])
	assert.Equal(t, "555", maps[0]["Phone"])
	assert.Equal(t, "", maps[1]["Phone"])
}
