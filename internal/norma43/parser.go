// Package norma43 parses AEB Norma 43 bank statement files, the fixed-width
// format Spanish banks use for account statement export. A file is a sequence
// of 80-column records typed by their first two characters: 11 account header,
// 22 movement, 23 complementary concept, 33 account summary, 88 end of file.
package norma43

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedFormat is returned when the file does not start with a
// Norma 43 account header record.
var ErrUnsupportedFormat = errors.New("norma43: file does not start with an account header (11) record")

// ParseError reports a fixed-width segment that could not be decoded.
type ParseError struct {
	Line  int
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("norma43: line %d: invalid %s %q", e.Line, e.Field, e.Value)
}

// Statement is a fully parsed Norma 43 file.
type Statement struct {
	BankCode       string
	BranchCode     string
	AccountNumber  string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	InitialBalance decimal.Decimal
	Currency       string
	HolderName     string
	Movements      []Movement
	FinalBalance   decimal.Decimal
}

// AccountID is the bank + branch + account digits from the header record.
func (s *Statement) AccountID() string {
	return s.BankCode + s.BranchCode + s.AccountNumber
}

// Movement is one type-22 record. Amount is signed from the debit/credit
// marker column and Balance is the running balance after the movement.
type Movement struct {
	Line          int
	OperationDate time.Time
	ValueDate     time.Time
	ConceptCode   string
	Concept       string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
	DocumentNo    string
	Reference     string
}

const (
	recHeader  = "11"
	recMove    = "22"
	recConcept = "23"
	recSummary = "33"
	recEOF     = "88"
)

// Parse decodes a Norma 43 file. It is pure: no persistence, the only I/O is
// reading r. Blank lines are skipped. Any undecodable date, amount or
// debit/credit marker aborts with a *ParseError naming the line and field.
func Parse(r io.Reader) (*Statement, error) {
	scanner := bufio.NewScanner(r)

	var st *Statement
	lineNo := 0
	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), "\r")
		lineNo++
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line := pad(raw)

		switch line[0:2] {
		case recHeader:
			if st != nil {
				// Multi-account files are not produced by the banks we
				// support; reject rather than silently merge accounts.
				return nil, &ParseError{Line: lineNo, Field: "record type", Value: recHeader}
			}
			header, err := parseHeader(line, lineNo)
			if err != nil {
				return nil, err
			}
			st = header

		case recMove:
			if st == nil {
				return nil, ErrUnsupportedFormat
			}
			mv, err := parseMovement(line, lineNo)
			if err != nil {
				return nil, err
			}
			prev := st.InitialBalance
			if n := len(st.Movements); n > 0 {
				prev = st.Movements[n-1].Balance
			}
			mv.Balance = prev.Add(mv.Amount)
			st.Movements = append(st.Movements, mv)

		case recConcept:
			if st == nil {
				return nil, ErrUnsupportedFormat
			}
			if n := len(st.Movements); n > 0 {
				text := strings.TrimSpace(line[4:80])
				if text != "" {
					st.Movements[n-1].Concept = strings.TrimSpace(st.Movements[n-1].Concept + " " + text)
				}
			}

		case recSummary:
			if st == nil {
				return nil, ErrUnsupportedFormat
			}
			final, err := parseSignedAmount(line[58:59], line[59:73], lineNo, "final balance")
			if err != nil {
				return nil, err
			}
			st.FinalBalance = final
			// Banks occasionally export ragged files; a balance mismatch is
			// diagnosed but not fatal.
			computed := st.InitialBalance
			if n := len(st.Movements); n > 0 {
				computed = st.Movements[n-1].Balance
			}
			if !final.Equal(computed) {
				log.Printf("norma43: line %d: final balance %s does not match initial balance plus movements (%s)",
					lineNo, final, computed)
			}

		case recEOF:
			// Trailer carries only record counts; nothing to keep.

		default:
			if st == nil {
				return nil, ErrUnsupportedFormat
			}
			return nil, &ParseError{Line: lineNo, Field: "record type", Value: line[0:2]}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("norma43: read: %w", err)
	}
	if st == nil {
		return nil, ErrUnsupportedFormat
	}
	return st, nil
}

func parseHeader(line string, lineNo int) (*Statement, error) {
	start, err := parseDate(line[20:26])
	if err != nil {
		return nil, &ParseError{Line: lineNo, Field: "period start date", Value: line[20:26]}
	}
	end, err := parseDate(line[26:32])
	if err != nil {
		return nil, &ParseError{Line: lineNo, Field: "period end date", Value: line[26:32]}
	}
	initial, perr := parseSignedAmount(line[32:33], line[33:47], lineNo, "initial balance")
	if perr != nil {
		return nil, perr
	}
	return &Statement{
		BankCode:       line[2:6],
		BranchCode:     line[6:10],
		AccountNumber:  line[10:20],
		PeriodStart:    start,
		PeriodEnd:      end,
		InitialBalance: initial,
		Currency:       line[47:50],
		HolderName:     strings.TrimSpace(line[51:77]),
	}, nil
}

func parseMovement(line string, lineNo int) (Movement, error) {
	opDate, err := parseDate(line[10:16])
	if err != nil {
		return Movement{}, &ParseError{Line: lineNo, Field: "operation date", Value: line[10:16]}
	}
	valDate, err := parseDate(line[16:22])
	if err != nil {
		return Movement{}, &ParseError{Line: lineNo, Field: "value date", Value: line[16:22]}
	}
	amount, perr := parseSignedAmount(line[27:28], line[28:42], lineNo, "amount")
	if perr != nil {
		return Movement{}, perr
	}
	return Movement{
		Line:          lineNo,
		OperationDate: opDate,
		ValueDate:     valDate,
		ConceptCode:   line[22:24] + line[24:27],
		Concept:       strings.TrimSpace(line[64:80]),
		Amount:        amount,
		DocumentNo:    strings.TrimSpace(line[42:52]),
		Reference:     strings.TrimSpace(line[52:64]),
	}, nil
}

// parseSignedAmount decodes a 14-digit amount with two implied decimals plus
// its one-character debit/credit marker: 1 debit (negative), 2 credit.
func parseSignedAmount(marker, digits string, lineNo int, field string) (decimal.Decimal, *ParseError) {
	amt, err := decimal.NewFromString(strings.TrimSpace(digits))
	if err != nil {
		return decimal.Zero, &ParseError{Line: lineNo, Field: field, Value: digits}
	}
	amt = amt.Shift(-2)
	switch marker {
	case "1":
		return amt.Neg(), nil
	case "2":
		return amt, nil
	default:
		return decimal.Zero, &ParseError{Line: lineNo, Field: field + " debit/credit marker", Value: marker}
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("060102", s)
}

func pad(line string) string {
	if len(line) >= 80 {
		return line
	}
	return line + strings.Repeat(" ", 80-len(line))
}
