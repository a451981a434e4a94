package prompt

import (
	"fmt"
	"strings"
)

// TemplateAnswer returns a canned answer picked by keywords in the question. It is used
// when the model is unavailable so that a question always receives useful guidance.
func TemplateAnswer(question, contentContext string) string {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "fair use"):
		lead := ""
		if contentContext != "" {
			lead = fmt.Sprintf("given the context of %s, ", contentContext)
		}
		return "Fair use is a legal doctrine that allows limited use of copyrighted material without requiring permission from the rights holders. It's determined by four factors:\n" +
			"1. Purpose and character of use (commercial vs. educational)\n" +
			"2. Nature of the copyrighted work\n" +
			"3. Amount and substantiality of the portion used\n" +
			"4. Effect on the potential market\n\n" +
			"In your case, " + lead + "the use would likely be considered fair use if it's for educational or transformative purposes, and doesn't significantly impact the market value of the original work."

	case strings.Contains(q, "creative commons"):
		return "Creative Commons licenses provide a standardized way to grant permissions for using creative works. There are six main types:\n" +
			"- CC BY: Attribution only\n" +
			"- CC BY-SA: Attribution + Share Alike\n" +
			"- CC BY-NC: Attribution + Non-Commercial\n" +
			"- CC BY-ND: Attribution + No Derivatives\n" +
			"- CC BY-NC-SA: Attribution + Non-Commercial + Share Alike\n" +
			"- CC BY-NC-ND: Attribution + Non-Commercial + No Derivatives\n\n" +
			withContext("For your specific content (%s), ", contentContext) +
			"you should check the exact license terms to ensure compliance with the attribution and usage requirements."

	case strings.Contains(q, "commercial"), strings.Contains(q, "business"):
		return "Commercial use of copyrighted content typically requires explicit permission or a license. Key considerations include:\n" +
			"1. Purpose: Is it for profit or business use?\n" +
			"2. Scope: How widely will it be distributed?\n" +
			"3. Duration: How long will it be used?\n" +
			"4. Territory: In which regions will it be used?\n\n" +
			withContext("Based on your content (%s), ", contentContext) +
			"you would need to obtain proper licensing or permissions for commercial use."

	case strings.Contains(q, "public domain"):
		return "Public domain works are not protected by copyright and can be freely used. Works enter the public domain through:\n" +
			"1. Expiration of copyright term\n" +
			"2. Failure to meet formal requirements\n" +
			"3. Dedication by the copyright holder\n" +
			"4. Works created by the U.S. government\n\n" +
			withContext("Regarding your content (%s), ", contentContext) +
			"you should verify its public domain status before using it freely."
	}

	return "Based on copyright law and best practices, " +
		withContext("considering your content (%s), ", contentContext) +
		"here's what you need to know:\n\n" +
		"1. Always verify the copyright status of content before use\n" +
		"2. Obtain proper permissions or licenses when required\n" +
		"3. Provide appropriate attribution when using licensed content\n" +
		"4. Consider fair use exceptions for educational or transformative purposes\n" +
		"5. Document your rights and permissions for future reference\n\n" +
		"For specific guidance, consult with a legal professional or refer to official copyright guidelines."
}

func withContext(format, contentContext string) string {
	if contentContext == "" {
		return ""
	}
	return fmt.Sprintf(format, contentContext)
}
