package reporters

// Export unexported functions for external tests.
var (
	PadToWidth          = padToWidth
	ToCellWidths        = toCellWidths
	CalcColumnWidthsFor = calcColumnWidthsFor
	BuildResultRow      = buildResultRow
	SeverityRank        = severityRank
	ShortenPath         = shortenPath
	DimBorders          = dimBorders
)

// SetHomeDir overrides the homeDir package variable for testing shortenPath.
func SetHomeDir(dir string) {
	homeDir = dir
}
