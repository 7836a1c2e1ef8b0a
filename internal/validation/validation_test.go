package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidationResultCreation tests creating a new result
func TestValidationResultCreation(t *testing.T) {
	result := NewResult()

	assert.NotNil(t, result)
	assert.Empty(t, result.Messages)
	assert.True(t, result.IsValid())
	assert.True(t, result.CanImport())
	assert.True(t, result.CanPromote())
}

// TestAddError tests adding error messages
func TestAddError(t *testing.T) {
	result := NewResult()

	result.AddError(CodeEmptySurgerySet, "no surgeries to schedule for 2026-03-02")

	assert.Len(t, result.Messages, 1)
	assert.False(t, result.IsValid())
	assert.False(t, result.CanImport())
	assert.False(t, result.CanPromote())
	assert.Equal(t, 1, result.ErrorCount())
}

// TestAddWarning tests adding warning messages
func TestAddWarning(t *testing.T) {
	result := NewResult()

	result.AddWarning(CodeUnknownAlgorithm, `algorithm "Foo" not recognized, defaulting to BasicTabu`)

	assert.Len(t, result.Messages, 1)
	assert.True(t, result.IsValid())   // Warnings don't make it invalid
	assert.True(t, result.CanImport()) // Can import with warnings
	assert.False(t, result.CanPromote())
	assert.Equal(t, 1, result.WarningCount())
}

// TestAddInfo tests adding info messages
func TestAddInfo(t *testing.T) {
	result := NewResult()

	result.AddInfo("INFO_CODE", "This is informational")

	assert.Len(t, result.Messages, 1)
	assert.True(t, result.IsValid())
	assert.True(t, result.CanImport())
	assert.True(t, result.CanPromote())
	assert.Equal(t, 1, result.InfoCount())
}

// TestMultipleMessages tests collecting multiple messages
func TestMultipleMessages(t *testing.T) {
	result := NewResult()

	result.
		AddError(CodeSurgeryNotFound, "surgery 501 not found in reference data").
		AddWarning(CodeUnknownAlgorithm, "unrecognized algorithm, defaulting to BasicTabu").
		AddInfo("INFO_CODE", "Processing completed with warnings")

	assert.Len(t, result.Messages, 3)
	assert.Equal(t, 1, result.ErrorCount())
	assert.Equal(t, 1, result.WarningCount())
	assert.Equal(t, 1, result.InfoCount())
	assert.False(t, result.IsValid())
	assert.False(t, result.CanImport())
	assert.False(t, result.CanPromote())
}

// TestMessagesByCode tests filtering messages by code
func TestMessagesByCode(t *testing.T) {
	result := NewResult()

	result.
		AddError(CodeSurgeryNotFound, "surgery 501 not found").
		AddError(CodeSurgeryNotFound, "surgery 502 not found")

	messages := result.MessagesByCode(CodeSurgeryNotFound)

	assert.Len(t, messages, 2)
	for _, msg := range messages {
		assert.Equal(t, CodeSurgeryNotFound, msg.Code)
	}
}

// TestMessagesBySeverity tests filtering messages by severity
func TestMessagesBySeverity(t *testing.T) {
	result := NewResult()

	result.
		AddError(CodeEmptySurgerySet, "Error 1").
		AddError(CodeEmptyRoomSet, "Error 2").
		AddWarning(CodeUnknownAlgorithm, "Warning 1").
		AddInfo("CODE", "Info 1")

	errors := result.MessagesBySeverity(SeverityError)
	warnings := result.MessagesBySeverity(SeverityWarning)
	infos := result.MessagesBySeverity(SeverityInfo)

	assert.Len(t, errors, 2)
	assert.Len(t, warnings, 1)
	assert.Len(t, infos, 1)
}

// TestHasErrorsAndWarnings tests flag methods
func TestHasErrorsAndWarnings(t *testing.T) {
	resultClean := NewResult()
	assert.False(t, resultClean.HasErrors())
	assert.False(t, resultClean.HasWarnings())

	resultWithError := NewResult().AddError("CODE", "Error")
	assert.True(t, resultWithError.HasErrors())
	assert.False(t, resultWithError.HasWarnings())

	resultWithWarning := NewResult().AddWarning("CODE", "Warning")
	assert.False(t, resultWithWarning.HasErrors())
	assert.True(t, resultWithWarning.HasWarnings())

	resultWithBoth := NewResult().
		AddError("ERR", "Error").
		AddWarning("WARN", "Warning")
	assert.True(t, resultWithBoth.HasErrors())
	assert.True(t, resultWithBoth.HasWarnings())
}

// TestWithContext tests messages with additional context
func TestWithContext(t *testing.T) {
	result := NewResult()

	context := map[string]interface{}{
		"max_iterations": 0,
		"schedule_date":  "2026-03-02",
	}

	result.AddErrorWithContext(CodeMaxIterationsOutOfRange, "max_iterations out of range", context)

	assert.Len(t, result.Messages, 1)
	msg := result.Messages[0]
	assert.Equal(t, context, msg.Context)
	assert.Equal(t, 0, msg.Context["max_iterations"])
}

// TestToJSON tests JSON serialization
func TestToJSON(t *testing.T) {
	result := NewResult()

	result.
		AddError(CodeSurgeryNotFound, "Unknown surgery: 501").
		AddWarning(CodeUnknownAlgorithm, "Unrecognized algorithm")

	json, err := result.ToJSON()

	assert.NoError(t, err)
	assert.NotEmpty(t, json)
	assert.Contains(t, json, "SURGERY_NOT_FOUND")
	assert.Contains(t, json, "UNKNOWN_ALGORITHM")
	assert.Contains(t, json, "ERROR")
	assert.Contains(t, json, "WARNING")
}

// TestFromJSON tests JSON deserialization
func TestFromJSON(t *testing.T) {
	original := NewResult()
	original.
		AddError(CodeSurgeryNotFound, "Unknown surgery: 501").
		AddWarning(CodeUnknownAlgorithm, "Unrecognized algorithm")

	jsonStr, err := original.ToJSON()
	require.NoError(t, err)

	// Deserialize
	restored, err := FromJSON(jsonStr)
	require.NoError(t, err)

	assert.Len(t, restored.Messages, 2)
	assert.Equal(t, original.ErrorCount(), restored.ErrorCount())
	assert.Equal(t, original.WarningCount(), restored.WarningCount())
}

// TestSummary tests human-readable summary
func TestSummary(t *testing.T) {
	result := NewResult()
	result.
		AddError(CodeSurgeryNotFound, "Unknown surgery: 501").
		AddWarning(CodeUnknownAlgorithm, "Unrecognized algorithm").
		AddInfo("INFO", "Done")

	summary := result.Summary()

	assert.Contains(t, summary, "1 errors")
	assert.Contains(t, summary, "1 warnings")
	assert.Contains(t, summary, "1 info")
	assert.Contains(t, summary, "SURGERY_NOT_FOUND")
	assert.Contains(t, summary, "UNKNOWN_ALGORITHM")
}

// TestChaining tests method chaining
func TestChaining(t *testing.T) {
	result := NewResult().
		AddError("CODE1", "Error 1").
		AddWarning("CODE2", "Warning 1").
		AddInfo("CODE3", "Info 1")

	assert.Len(t, result.Messages, 3)
	assert.Equal(t, 1, result.ErrorCount())
	assert.Equal(t, 1, result.WarningCount())
	assert.Equal(t, 1, result.InfoCount())
}

// TestRealWorldExample tests a real-world optimize-request validation scenario
func TestRealWorldExample(t *testing.T) {
	// Simulating a POST /api/optimize request with several problems
	result := NewResult()

	// max_iterations out of range
	result.AddErrorWithContext(
		CodeMaxIterationsOutOfRange,
		"max_iterations must be in [1, 100000]",
		map[string]interface{}{
			"max_iterations": 0,
			"schedule_date":  "2026-03-02",
		},
	)

	// Referenced surgeries that don't exist in reference data
	result.AddErrorWithContext(
		CodeSurgeryNotFound,
		"surgeries referenced in request not found in reference data",
		map[string]interface{}{
			"surgery_ids": []int64{501, 502},
			"count":       2,
		},
	)

	// Unrecognized algorithm, defaults applied
	result.AddWarning(
		CodeUnknownAlgorithm,
		`algorithm "Foo" not recognized, defaulting to BasicTabu`,
	)

	// Informational: how many surgeries will be scheduled
	result.AddInfo(
		"SURGERIES_ACCEPTED",
		"150 surgeries accepted for scheduling",
	)

	// Cannot run due to errors
	assert.False(t, result.CanImport())
	// Cannot promote due to errors and warnings
	assert.False(t, result.CanPromote())
	// Has both errors and warnings
	assert.True(t, result.HasErrors())
	assert.True(t, result.HasWarnings())
}
