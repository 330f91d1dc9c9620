package sheets_export

// Config holds the configuration for the spreadsheet export adapter.
type Config struct {
	// Range is the A1-notation cell the header row is written at; appended
	// rows land below whatever the sheet already holds.
	Range string `conf:"RANGE" default:"Sheet1!A1"`

	ValueInputOption string `conf:"VALUE_INPUT_OPTION" default:"RAW"`
}
