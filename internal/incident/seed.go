package incident

// defaultRules is the seed library of known error signatures. Patterns are
// matched case-insensitively against raw failure text.
var defaultRules = []KnownErrorRule{
	{
		Name:    "No columns detected",
		Pattern: "No columns detected",
		Fix: FixPayload{
			Severity:         "high",
			Category:         "ingest",
			RootCause:        "The uploaded file has no header row or could not be parsed into columns.",
			CorrectiveAction: "Ensure the first row contains column names and re-export the file as a well-formed CSV or Excel file.",
			ResolutionReport: "Pipeline rejected the file before validation because the schema was empty.",
		},
	},
	{
		Name:    "No rows detected",
		Pattern: "No rows detected",
		Fix: FixPayload{
			Severity:         "medium",
			Category:         "ingest",
			RootCause:        "The uploaded file is empty or only contains a header row.",
			CorrectiveAction: "Verify the source system is exporting data and re-upload a file with at least one data row.",
			ResolutionReport: "Upload completed but zero records were available for processing.",
		},
	},
	{
		Name:    "Required columns missing",
		Pattern: "Required columns missing",
		Fix: FixPayload{
			Severity:         "high",
			Category:         "schema",
			RootCause:        "The file schema does not match the expected template for this department.",
			CorrectiveAction: "Update the export to include all required columns (e.g. student_id, score) and re-upload.",
			ResolutionReport: "Schema validation blocked the job until the template is fixed.",
		},
	},
	{
		Name:    "Unsupported file type",
		Pattern: "Unsupported file type",
		Fix: FixPayload{
			Severity:         "low",
			Category:         "ingest",
			RootCause:        "The file extension is not supported by the pipeline loader.",
			CorrectiveAction: "Convert the file to CSV, XLSX/XLS or a tabular PDF and try again.",
			ResolutionReport: "Rejected because the parser could not infer a loader.",
		},
	},
	{
		Name:    "No table found in first PDF page",
		Pattern: "No table found in first PDF page",
		Fix: FixPayload{
			Severity:         "medium",
			Category:         "ingest",
			RootCause:        "The PDF does not contain an extractable table on the first page.",
			CorrectiveAction: "Export the results as a table-based PDF or use CSV/Excel instead.",
			ResolutionReport: "PDF extraction returned zero tables.",
		},
	},
	{
		Name:    "File not found",
		Pattern: "File not found",
		Fix: FixPayload{
			Severity:         "critical",
			Category:         "storage",
			RootCause:        "The on-disk file path for this upload is missing or has been moved.",
			CorrectiveAction: "Re-upload the original file so the pipeline can access it again.",
			AutoRetry:        &AutoRetryPolicy{Enabled: false},
		},
	},
	{
		Name:    "Temporary storage lock",
		Pattern: "(Resource temporarily unavailable|share violation)",
		Fix: FixPayload{
			Severity:         "medium",
			Category:         "infrastructure",
			RootCause:        "The storage layer briefly locked the file when the pipeline tried to read it.",
			CorrectiveAction: "No manual action required unless the issue persists. The engine retries automatically.",
			AutoRetry:        &AutoRetryPolicy{Enabled: true, Max: 2, DelaySeconds: 45},
			ResolutionReport: "Storage lock cleared after retry.",
		},
	},
	{
		Name:    "Encoding mismatch",
		Pattern: "(UnicodeDecodeError|codec can't decode)",
		Fix: FixPayload{
			Severity:         "high",
			Category:         "ingest",
			RootCause:        "The CSV encoding differs from UTF-8.",
			CorrectiveAction: "Re-export the source file as UTF-8 or specify UTF-8 BOM.",
			ResolutionReport: "Parser failed while decoding file contents.",
			Repairs:          []RepairAction{RepairReEncode},
		},
	},
	{
		Name:    "Grade outside range",
		Pattern: "(score must be between|value out of range)",
		Fix: FixPayload{
			Severity:         "medium",
			Category:         "validation",
			RootCause:        "One or more numeric fields contain values outside the permitted range.",
			CorrectiveAction: "Review the highlighted rows and correct the data before re-uploading.",
			ResolutionReport: "Validation rejected the payload due to data quality issues.",
			Repairs:          []RepairAction{RepairClipScore},
		},
	},
	{
		Name:    "Duplicate student rows",
		Pattern: "Duplicate rows detected",
		Fix: FixPayload{
			Severity:         "medium",
			Category:         "validation",
			RootCause:        "The upload contains duplicate student IDs.",
			CorrectiveAction: "Deduplicate records in the source file and upload again.",
			ResolutionReport: "Encountered duplicate keys while enforcing uniqueness.",
			Repairs:          []RepairAction{RepairDropDuplicates},
		},
	},
}

// SeedDefaults installs the default rule library. Safe to call many times.
func SeedDefaults(repo RuleRepository) error {
	for _, rule := range defaultRules {
		if _, err := repo.GetOrCreate(rule.Pattern, rule); err != nil {
			return err
		}
	}
	return nil
}
