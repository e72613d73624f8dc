package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"po-tracking/logger"
)

// Fields is the partial record pulled out of one confirmation document.
// Absence of a field is not an error; Validate decides whether the
// subset is good enough to create a reservation.
type Fields struct {
	ReservationCode string
	InternalLocator string
	Locator         string
	Agency          string

	IssueDate *time.Time

	HotelName    string
	HotelAddress string
	HotelPhone   string

	CheckIn       *time.Time
	CheckOut      *time.Time
	ArrivalTime   string
	DepartureTime string
	Nights        int
	Rooms         int

	TotalAmount *float64
	Currency    string

	RoomDetails []RoomDetail

	CancellationDeadline *time.Time

	HotelRemarks string
	AdvisorNotes string
}

// RoomDetail is one entry of the best-effort room/occupancy listing.
// It is enrichment data only; nothing validates it against the room
// count.
type RoomDetail struct {
	Number   int      `json:"number"`
	Category string   `json:"category"`
	Adults   int      `json:"adults"`
	Children int      `json:"children"`
	MealPlan string   `json:"meal_plan"`
	Guests   []string `json:"guests"`
}

var (
	reCode            = regexp.MustCompile(`(?i)ID:\s*(\d+)`)
	reInternalLocator = regexp.MustCompile(`(?i)LOC\s+Interno:\s*([A-Z0-9]+)`)
	reLocator         = regexp.MustCompile(`(?i)Localizador:\s*(\d+)`)
	reAgency          = regexp.MustCompile(`(?i)Agencia:\s*([^\n]+)`)
	reIssueDate       = regexp.MustCompile(`(?i)Fecha\s+Emision:\s*([^\n]+)`)
	reHotelName       = regexp.MustCompile(`(?i)(.*?Hotel.*?)(?:\n|Total:)`)
	reHotelAddress    = regexp.MustCompile(`Av\.\s+[^\n]+|[^\n]+,\s+\d+\s+[A-Za-z\s]+,`)
	reHotelPhone      = regexp.MustCompile(`(?i)Teléfono:\s*(\d+)`)
	reCheckIn         = regexp.MustCompile(`(?i)Check\s+In:\s*([a-záéíóú]+)\s+(\d+),\s+([a-záéíóú]+)\.?\s+(\d{4})`)
	reCheckOut        = regexp.MustCompile(`(?i)Check\s+Out:\s*([a-záéíóú]+)\s+(\d+),\s+([a-záéíóú]+)\.?\s+(\d{4})`)
	reArrivalTime     = regexp.MustCompile(`(?i)Hora\s+Llegada:\s*(\d+:\d+\s*[AP]M)`)
	reDepartureTime   = regexp.MustCompile(`(?i)Hora\s+Salida:\s*(\d+:\d+\s*[AP]M)`)
	reNights          = regexp.MustCompile(`(?i)Noches:\s*(\d+)`)
	reRooms           = regexp.MustCompile(`(?i)Habitaciones:\s*(\d+)`)
	reCancellation    = regexp.MustCompile(`(?i)([a-záéíóú]+),\s+(\d+)\s+de\s+([a-záéíóú]+)\s+de\s+(\d{4})`)
	reHotelRemarks    = regexp.MustCompile(`(?i)Observaciones\s*\n\s*([^\n]*)\s*Sin\s+notas\s+de\s+hotel\s+informadas\.`)
	reAdvisorNotes    = regexp.MustCompile(`(?i)Notas\s+del\s+asesor\s*\n\s*([^\n]*)\s*Sin\s+notas\s+del\s+asesor\s+informadas\.`)

	reRoomDetail = regexp.MustCompile(`(?i)Habitación\s+(\d+)\s*‐\s*Categoría\s*‐\s*([^‐]+)‐\s*ADT/CHD:\s*(\d+)/(\d+)\s*‐\s*Plan\s+Alimentación:\s*([^\n]+)`)

	// Amount patterns, most specific label first. The first pattern
	// whose capture parses as a number wins.
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Total:\s*CLP\s*\$?\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Total:\s*\$\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Monto\s+Total:\s*CLP\s*\$?\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Monto\s+Total:\s*\$\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Monto:\s*CLP\s*\$?\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Monto:\s*\$\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Total\s+a\s+Pagar:\s*CLP\s*\$?\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Total\s+a\s+Pagar:\s*\$\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Precio\s+Total:\s*CLP\s*\$?\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)Precio\s+Total:\s*\$\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)CLP\s*\$?\s*([\d,.]+)\s*(?:Total|Monto)`),
		regexp.MustCompile(`(?i)Total.*?CLP\s*\$?\s*([\d,.]+)`),
		regexp.MustCompile(`(?i)(?:Total|Monto).*?\$\s*([\d,.]+)`),
	}

	// Catch-all: any number of at least five digits/separators next to
	// a currency marker. Applied only when every labeled pattern missed.
	reAmountFallback = regexp.MustCompile(`(?i)(?:CLP|\$)\s*\$?\s*([\d,.]{5,})`)
)

var spanishMonths = map[string]time.Month{
	"ene": time.January, "enero": time.January,
	"feb": time.February, "febrero": time.February,
	"mar": time.March, "marzo": time.March,
	"abr": time.April, "abril": time.April,
	"may": time.May, "mayo": time.May,
	"jun": time.June, "junio": time.June,
	"jul": time.July, "julio": time.July,
	"ago": time.August, "agosto": time.August,
	"sep": time.September, "septiembre": time.September,
	"oct": time.October, "octubre": time.October,
	"nov": time.November, "noviembre": time.November,
	"dic": time.December, "diciembre": time.December,
}

// ParseText runs the pattern cascade over the full document text.
// Every field is an independent first-match-wins search; a pattern
// that does not match simply leaves its field unset.
func ParseText(text string) Fields {
	var f Fields

	if m := reCode.FindStringSubmatch(text); m != nil {
		f.ReservationCode = m[1]
	}

	if m := reInternalLocator.FindStringSubmatch(text); m != nil {
		f.InternalLocator = m[1]
		// Documents without an explicit ID use the internal locator.
		if f.ReservationCode == "" {
			f.ReservationCode = m[1]
		}
	}

	if m := reLocator.FindStringSubmatch(text); m != nil {
		f.Locator = m[1]
	}

	if m := reAgency.FindStringSubmatch(text); m != nil {
		f.Agency = strings.TrimSpace(m[1])
	}

	if m := reIssueDate.FindStringSubmatch(text); m != nil {
		raw := strings.TrimSpace(m[1])
		// "INMEDIATO" means the document carries no issue date; the
		// confirmation mail's arrival date takes over as day 0.
		if raw != "" && !strings.EqualFold(raw, "INMEDIATO") {
			f.IssueDate = ParseSpanishDate(raw)
			if f.IssueDate == nil {
				logger.Warningf("Could not parse issue date: %s", raw)
			}
		}
	}

	if m := reHotelName.FindStringSubmatch(text); m != nil {
		f.HotelName = strings.TrimSpace(m[1])
	}

	if m := reHotelAddress.FindString(text); m != "" {
		f.HotelAddress = strings.TrimSpace(m)
	}

	if m := reHotelPhone.FindStringSubmatch(text); m != nil {
		f.HotelPhone = m[1]
	}

	f.TotalAmount, f.Currency = parseAmount(text)

	if m := reCheckIn.FindStringSubmatch(text); m != nil {
		f.CheckIn = ParseSpanishDate(m[2] + " " + m[3] + " " + m[4])
	}

	if m := reCheckOut.FindStringSubmatch(text); m != nil {
		f.CheckOut = ParseSpanishDate(m[2] + " " + m[3] + " " + m[4])
	}

	if m := reArrivalTime.FindStringSubmatch(text); m != nil {
		f.ArrivalTime = m[1]
	}

	if m := reDepartureTime.FindStringSubmatch(text); m != nil {
		f.DepartureTime = m[1]
	}

	if m := reNights.FindStringSubmatch(text); m != nil {
		f.Nights, _ = strconv.Atoi(m[1])
	}

	if m := reRooms.FindStringSubmatch(text); m != nil {
		f.Rooms, _ = strconv.Atoi(m[1])
	}

	if m := reCancellation.FindStringSubmatch(text); m != nil {
		f.CancellationDeadline = ParseSpanishDate(m[2] + " " + m[3] + " " + m[4])
	}

	f.RoomDetails = parseRoomDetails(text)

	if m := reHotelRemarks.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		f.HotelRemarks = strings.TrimSpace(m[1])
	}

	if m := reAdvisorNotes.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		f.AdvisorNotes = strings.TrimSpace(m[1])
	}

	logger.Infof("Extracted fields: code=%s agency=%s", f.ReservationCode, f.Agency)

	return f
}

// parseAmount walks the labeled patterns in order of decreasing
// specificity, then falls back to the bare currency-marker heuristic.
// Dots and commas are thousands separators in this document family, so
// both are stripped before the numeric parse.
func parseAmount(text string) (*float64, string) {
	for _, pattern := range amountPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := parseAmountString(m[1]); ok {
			logger.Infof("💰 Amount extracted: CLP %.0f", v)
			return &v, "CLP"
		}
	}

	if m := reAmountFallback.FindStringSubmatch(text); m != nil {
		if v, ok := parseAmountString(m[1]); ok {
			logger.Infof("💰 Amount extracted (fallback): CLP %.0f", v)
			return &v, "CLP"
		}
	}

	return nil, ""
}

func parseAmountString(raw string) (float64, bool) {
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(raw)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseRoomDetails(text string) []RoomDetail {
	var rooms []RoomDetail

	for _, m := range reRoomDetail.FindAllStringSubmatch(text, -1) {
		number, _ := strconv.Atoi(m[1])
		adults, _ := strconv.Atoi(m[3])
		children, _ := strconv.Atoi(m[4])
		rooms = append(rooms, RoomDetail{
			Number:   number,
			Category: strings.TrimSpace(m[2]),
			Adults:   adults,
			Children: children,
			MealPlan: strings.TrimSpace(m[5]),
			Guests:   []string{},
		})
	}

	return rooms
}

// RoomDetailsJSON serializes the room listing for storage. Returns nil
// when no rooms were found.
func (f Fields) RoomDetailsJSON() []byte {
	if len(f.RoomDetails) == 0 {
		return nil
	}
	b, err := json.Marshal(f.RoomDetails)
	if err != nil {
		return nil
	}
	return b
}

// ParseSpanishDate converts a Spanish date like "27 nov. 2025" to a
// time. Returns nil when the text is not a recognizable date.
func ParseSpanishDate(raw string) *time.Time {
	raw = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), ".", "")

	parts := strings.Fields(raw)
	if len(parts) < 3 {
		return nil
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil
	}

	month, ok := spanishMonths[parts[1]]
	if !ok {
		return nil
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// Validate checks the mandatory fields are present and type-correct.
// Returns whether the record may become a reservation plus the list of
// human-readable reasons when it may not.
func Validate(f Fields) (bool, []string) {
	var errors []string

	if f.ReservationCode == "" {
		errors = append(errors, "missing mandatory field: reservation code")
	}
	if f.InternalLocator == "" {
		errors = append(errors, "missing mandatory field: internal locator")
	}
	if f.Agency == "" {
		errors = append(errors, "missing mandatory field: agency")
	}
	if f.TotalAmount == nil {
		errors = append(errors, "missing mandatory field: total amount")
	}

	isValid := len(errors) == 0

	if isValid {
		logger.Infof("✅ Extracted data validated for reservation %s", f.ReservationCode)
	} else {
		logger.Errorf("Validation errors: %s", strings.Join(errors, ", "))
	}

	return isValid, errors
}
