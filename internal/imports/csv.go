package imports

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/models"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/width"
)

const (
	maxCSVBytes = 10 << 20
	maxQuantity = 100
)

type column int

const (
	colNone column = iota
	colOrderID
	colEmail
	colProduct
	colQuantity
	colPrice
	colTicketType
	colStartTime
	colEmployeeID
	colName
)

// headerKeywords is checked top to bottom within each matching pass; the
// first column to match a field keeps it. exact lists whole headers in
// normalized form, keywords are tried as words and then as substrings.
var headerKeywords = []struct {
	col      column
	exact    []string
	keywords []string
}{
	{colOrderID, []string{"order", "order id", "order no", "order number", "注文番号", "注文id", "注文no"}, []string{"order", "注文"}},
	{colEmail, []string{"email", "e mail", "mail", "email address", "メール", "メールアドレス"}, []string{"mail", "メール"}},
	{colProduct, []string{"product", "product name", "item", "item name", "商品", "商品名"}, []string{"product", "item", "商品"}},
	{colQuantity, []string{"quantity", "qty", "count", "枚数", "個数", "数量"}, []string{"quantity", "qty", "count", "枚数", "個数", "数量"}},
	{colPrice, []string{"price", "amount", "金額", "値段", "価格"}, []string{"price", "amount", "金額", "値段", "価格"}},
	{colTicketType, []string{"ticket type", "ticket", "券種"}, []string{"ticket", "券種"}},
	{colStartTime, []string{"start time", "entry time", "start", "入場時間", "開始時間"}, []string{"start", "entry", "入場", "開始"}},
	{colEmployeeID, []string{"id", "employee id", "employee no", "member id", "code", "社員番号", "社員id", "番号", "コード"}, []string{"id", "code", "社員", "番号", "コード"}},
	{colName, []string{"name", "full name", "氏名", "名前", "お名前"}, []string{"name", "氏名", "名前"}},
}

// decode returns the upload as UTF-8. Exports from Japanese spreadsheet
// tools are often Shift-JIS, which is tried whenever the bytes are not
// valid UTF-8.
func decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func readRecords(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxCSVBytes))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Could not read the CSV file.")
	}
	text, err := decode(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Unsupported CSV encoding.")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Malformed CSV file.")
		}
		if blank(rec) {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// normalizeHeader folds full-width forms, lowercases and splits a header into
// words.
func normalizeHeader(h string) []string {
	h = strings.ToLower(width.Fold.String(h))
	return strings.FieldsFunc(h, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

type headerMatch func(words []string, joined string, exact, keywords []string) bool

func matchExact(_ []string, joined string, exact, _ []string) bool {
	for _, e := range exact {
		if joined == e {
			return true
		}
	}
	return false
}

func matchWord(words []string, _ string, _, keywords []string) bool {
	for _, w := range words {
		for _, kw := range keywords {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// matchSubstring skips very short keywords such as "id", which would
// otherwise hit words like "paid".
func matchSubstring(_ []string, joined string, _, keywords []string) bool {
	for _, kw := range keywords {
		if len(kw) > 2 && strings.Contains(joined, kw) {
			return true
		}
	}
	return false
}

func detectColumns(header []string) map[column]int {
	words := make([][]string, len(header))
	joined := make([]string, len(header))
	for i, h := range header {
		words[i] = normalizeHeader(h)
		joined[i] = strings.Join(words[i], " ")
	}

	cols := make(map[column]int)
	assigned := make(map[int]bool)
	for _, match := range []headerMatch{matchExact, matchWord, matchSubstring} {
		for _, hk := range headerKeywords {
			if _, ok := cols[hk.col]; ok {
				continue
			}
			for i := range header {
				if assigned[i] {
					continue
				}
				if match(words[i], joined[i], hk.exact, hk.keywords) {
					cols[hk.col] = i
					assigned[i] = true
					break
				}
			}
		}
	}
	return cols
}

func field(rec []string, cols map[column]int, c column) string {
	i, ok := cols[c]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseQuantity(s string) int {
	n, err := strconv.Atoi(width.Fold.String(strings.TrimSpace(s)))
	switch {
	case err != nil || n < 1:
		return 1
	case n > maxQuantity:
		return maxQuantity
	default:
		return n
	}
}

// ParseCSV reads a ticket sales export. The header row is required; columns
// are recognized by English or Japanese keywords.
func ParseCSV(r io.Reader) ([]models.ImportRow, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, apperrors.Validation("The CSV file has no data rows.")
	}

	cols := detectColumns(records[0])
	if _, ok := cols[colName]; !ok {
		return nil, apperrors.Validation("The CSV file needs a name column.")
	}

	rows := make([]models.ImportRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, models.ImportRow{
			Name:        field(rec, cols, colName),
			Email:       field(rec, cols, colEmail),
			OrderID:     field(rec, cols, colOrderID),
			EmployeeID:  field(rec, cols, colEmployeeID),
			TicketType:  field(rec, cols, colTicketType),
			StartTime:   field(rec, cols, colStartTime),
			ProductName: field(rec, cols, colProduct),
			Price:       field(rec, cols, colPrice),
			Quantity:    parseQuantity(field(rec, cols, colQuantity)),
		})
	}
	return rows, nil
}

// ParseRosterCSV reads an employee list with id, name and optional email.
func ParseRosterCSV(r io.Reader) ([]models.RosterRow, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, apperrors.Validation("The CSV file has no data rows.")
	}

	cols := detectColumns(records[0])
	_, hasID := cols[colEmployeeID]
	_, hasName := cols[colName]
	if !hasID || !hasName {
		return nil, apperrors.Validation("The CSV file needs an ID column and a name column.")
	}

	rows := make([]models.RosterRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, models.RosterRow{
			EmployeeID: field(rec, cols, colEmployeeID),
			Name:       field(rec, cols, colName),
			Email:      field(rec, cols, colEmail),
		})
	}
	return rows, nil
}
