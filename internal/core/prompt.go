package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionSystemPrompt is the system message shared by every LLM adapter.
const ExtractionSystemPrompt = "You are an expert at analyzing student emails and extracting structured information. Always return valid JSON only, no markdown, no explanation. Be thorough and detailed"

// extractionPromptBody holds the extraction contract: key list, category
// enumeration, bullet-marker convention and null rules. Adapters prepend the
// email content. Kept as one literal so the contract cannot drift between
// vendors.
const extractionPromptBody = `TASK: Extract the following information and return ONLY a JSON object (no markdown, no explanation, no conversational text, no pre-amble).

{
  "summary": "Comprehensive 3-5 sentence summary with ALL key information: What is this about? Who is it for? Key dates/deadlines? Important requirements? Any action needed?",
  "category": "EXACTLY one of: internship, job offer, exam, reminder, announcement, misc",
  "company": "Official Company/organization name for job/internship emails ONLY, otherwise null. Use the full, formal name.",
  "role": "Specific, formal job title/position(s) for job/internship emails ONLY, otherwise null. List multiple roles if present.",
  "deadline": "The primary application or submission deadline. Use YYYY-MM-DD format (e.g., 2025-11-24) or null.",
  "applyLink": "The single, PRIMARY application/registration URL. Must start with http/https or be null.",
  "otherLinks": ["Array of ALL other unique and important URLs found in the email (brochures, info pages, documents, forms, portals, drive links, video links, meeting links). Return an empty array [] if none are found."],
  "eligibility": "Detailed eligibility criteria formatted as a single string with bullet points (\n• Item). Return null if no specific criteria are mentioned.",
  "timings": "Complete schedule details formatted as a single string with bullet points (\n• Item). Return null if no specific timings are mentioned.",
  "salary": "Complete compensation breakdown (Stipend/CTC, duration, benefits) formatted as a single string with bullet points (\n• Item). Return null if no salary or compensation is mentioned.",
  "location": "Full location information (Venue, Address, Mode, Platform) formatted as a single string with bullet points (\n• Item). Return null if no location is mentioned.",
  "eventDetails": "Practical logistics (What to Bring, Reporting Location, Dress Code, Format, Duration, Special Instructions, Documents) formatted as a single string with bullet points (\n• Item). Return null if no practical details are mentioned.",
  "requirements": "Technical/Professional requirements (Programming, Frameworks, Experience, Soft Skills, Certifications, Portfolio) formatted as a single string with bullet points (\n• Item). Return null if no specific requirements are mentioned.",
  "description": "Detailed description covering nature of work, key responsibilities, learning outcomes, project details, and involved technologies. Provide a coherent paragraph or two of text. Return null if a meaningful description is absent.",
  "attachmentSummary": "Brief, single-sentence description of what the attachments contain (Job Description PDF, Application Form, Brochure, etc.). Return null if no attachments are present or their content is unclear."
}

CATEGORIZATION RULES (choose the MOST SPECIFIC category):
- "internship": ANY internship opportunity (summer, winter, industrial training, apprenticeship, co-op). Keywords: intern, internship, training, apprentice, project
- "job offer": Full-time jobs, campus placement drives, lateral hiring, job fairs, recruitment drives. Keywords: job, placement, hiring, recruitment, full-time, careers, FTE
- "exam": Academic exams, assessments, tests, quizzes, online exams, mid-terms, finals, certification tests. Keywords: exam, test, assessment, quiz, evaluation, certification
- "reminder": Deadline reminders, submission reminders, follow-ups, last date alerts, pending actions. Keywords: reminder, last date, deadline approaching, action required, pending
- "announcement": Events, workshops, webinars, competitions, hackathons, seminars, conferences, guest lectures, cultural events. Keywords: event, workshop, webinar, competition, hackathon, seminar, conference, fest, notice
- "misc": Administrative notices, general information, newsletters, fee reminders, official policy changes, or anything that does not fit above.
- PRIORITY: if an email mentions BOTH internship AND job, categorize by what is PRIMARY in the subject line or the initial context of the body.
- Contests and challenges on platforms like Unstop, Dare2Compete, or HackerRank must be categorized as "announcement" unless they are explicitly an exam for a placement process.

CRITICAL INSTRUCTIONS:
1. NEVER hallucinate data: if information for any field is not explicitly and clearly stated in the email, the value for that field must be null (or [] for otherLinks).
2. For "job offer" or "internship" categories, the company and role fields must be extracted (even if implied from the subject).
3. All structured fields (eligibility, timings, salary, location, eventDetails, requirements) must be formatted as a single string containing bullet points (\n• Item).
4. The only output is the valid, single JSON object. Do not include any text before or after the JSON.
5. All dates must adhere to the YYYY-MM-DD standard.
6. The otherLinks array must contain every other unique URL found in the email, with no duplicates, and must not include the applyLink.`

// BuildExtractionPrompt assembles the user prompt for one email. The body is
// expected to be pre-truncated by the caller's text processor.
func BuildExtractionPrompt(email *EmailContent) string {
	var b strings.Builder

	body := email.Body
	if body == "" {
		body = "No body text provided"
	}

	b.WriteString("EMAIL CONTENT:\n")
	fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
	fmt.Fprintf(&b, "Preview: %s\n", email.Snippet)
	fmt.Fprintf(&b, "Body: %s", body)

	if len(email.Attachments) > 0 {
		fmt.Fprintf(&b, "\n\nATTACHMENTS (%d):", len(email.Attachments))
		for _, a := range email.Attachments {
			fmt.Fprintf(&b, "\n- %s (%s, %.1f KB)", a.Filename, a.MimeType, float64(a.Size)/1024)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(extractionPromptBody)
	return b.String()
}

// ParseExtractionJSON decodes the model's response into ExtractedFields. When
// the raw text is not valid JSON it tries the substring between the first '{'
// and the last '}' before giving up.
func ParseExtractionJSON(responseText string) (*ExtractedFields, error) {
	var fields ExtractedFields
	if err := json.Unmarshal([]byte(responseText), &fields); err == nil {
		return &fields, nil
	}

	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart < 0 || jsonEnd < jsonStart {
		return nil, fmt.Errorf("failed to extract JSON from LLM response")
	}

	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &fields, nil
}
