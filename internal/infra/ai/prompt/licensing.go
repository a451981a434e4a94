package prompt

import "fmt"

// LicensingPrompt wraps document content in the fixed licensing-analysis instruction.
func LicensingPrompt(content string) string {
	return fmt.Sprintf("Analyze the licensing of the following content:\n%s\nProvide a structured summary, risk assessment, and recommendations.", content)
}

// LegalQuestionPrompt builds the prompt for a free-text legal question. contentContext
// describes a referenced upload and may be empty.
func LegalQuestionPrompt(question, contentContext string) string {
	p := "You are an assistant explaining copyright and content licensing to creators. " +
		"Answer the question below in plain language, list the factors that matter, and " +
		"recommend consulting a legal professional for binding advice.\n"
	if contentContext != "" {
		p += fmt.Sprintf("Content under discussion: %s\n", contentContext)
	}
	return p + fmt.Sprintf("Question: %s", question)
}

// UploadContext formats a referenced upload for LegalQuestionPrompt and TemplateAnswer.
func UploadContext(fileType, fileName, analysisSummary string) string {
	if analysisSummary == "" {
		analysisSummary = "No analysis available"
	}
	return fmt.Sprintf("File type: %s, File name: %s, Analysis: %s", fileType, fileName, analysisSummary)
}
