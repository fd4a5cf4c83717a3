package hda

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Card is one entry of /proc/asound/cards.
type Card struct {
	Index    int
	ID       string
	Driver   string
	Name     string
	LongName string
}

var cardLine = regexp.MustCompile(`^\s*(\d+)\s+\[(\S+)\s*\]:\s+(\S+)\s+-\s+(.*)$`)

// ParseCards parses the contents of /proc/asound/cards.
func ParseCards(r io.Reader) ([]Card, error) {
	var cards []Card
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if m := cardLine.FindStringSubmatch(line); m != nil {
			index, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("invalid card index %q: %w", m[1], err)
			}
			cards = append(cards, Card{
				Index:  index,
				ID:     m[2],
				Driver: m[3],
				Name:   strings.TrimSpace(m[4]),
			})
			continue
		}
		// The long name is the indented line following each card header.
		if trimmed := strings.TrimSpace(line); trimmed != "" && len(cards) > 0 && cards[len(cards)-1].LongName == "" {
			cards[len(cards)-1].LongName = trimmed
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}
	return cards, nil
}
