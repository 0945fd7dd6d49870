package constants

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileExt(t *testing.T) {
	require.Equal(t, ".pdf", FileExt("Invoice.PDF"))
	require.Equal(t, ".txt", FileExt("notes.txt"))
	require.Equal(t, "", FileExt("noextension"))
}

func TestIsSupportedFile(t *testing.T) {
	require.True(t, IsSupportedFile("invoice.docx"))
	require.True(t, IsSupportedFile("INVOICE.XLSX"))
	require.False(t, IsSupportedFile("archive.zip"))
	require.False(t, IsSupportedFile("binary"))
}

func TestFileTypeDescription(t *testing.T) {
	require.Equal(t, "Word Document", FileTypeDescription("a.docx"))
	require.Equal(t, "Unknown", FileTypeDescription("a.bin"))
}

func TestSupportedExtensionsSortedAndComplete(t *testing.T) {
	exts := SupportedExtensions()
	require.Len(t, exts, len(SupportedFormats))
	require.IsIncreasing(t, exts)
}

func TestIsValidTaskType(t *testing.T) {
	require.True(t, IsValidTaskType(TaskDataExtraction))
	require.True(t, IsValidTaskType(TaskDuplicateDetection))
	require.False(t, IsValidTaskType(TaskType("image_generation")))
}
