package pipeline

import (
	"fmt"
	"strings"

	"github.com/xxxsen/spark/internal/model"
)

const DefaultTagDelimiter = "TagsJSON:"

const videoNotesTemplate = `You are a meticulous study-notes writer.
The text below is a raw, possibly auto-generated video transcript. Turn it into structured reading notes.
- Start with a single "# " heading that names the core topic.
- Remove filler words, repetitions and transcription noise.
- Organise the content into sections with "## " headings and bullet points.
- Keep every argument, example and figure the speaker gives; do not invent anything.
- Use the same language as the transcript.

TRANSCRIPT:
%s`

const chatLogTemplate = `You are an editor cleaning up a group chat log.
Rewrite the conversation below into a readable discussion summary.
- Start with a single "# " heading that names the topic being discussed.
- Attribute each viewpoint to its speaker.
- Drop greetings, stickers, off-topic chatter and duplicated messages.
- Preserve disagreements and the reasoning behind each position.
- Use the same language as the chat.

CHAT LOG:
%s`

// tagInstruction is appended to every prompt so that one request yields both
// the note and its tags.
const tagInstruction = `

After the note, on its own final line, write %s followed by a JSON array of 3-5 short tags, for example:
%s ["#topic", "#concept", "#person"]
- Tags start with "#" and are 1-3 words.
- Use the same language as the content.
- Output nothing after the JSON array.`

// BuildPrompt selects the template for kind, interpolates text and appends the
// tag instruction. Kinds without a template pass the text through.
func BuildPrompt(kind model.SourceKind, text string, delimiter string) string {
	if strings.TrimSpace(delimiter) == "" {
		delimiter = DefaultTagDelimiter
	}
	var body string
	switch kind {
	case model.SourceVideoSnippet:
		body = fmt.Sprintf(videoNotesTemplate, text)
	case model.SourceChatLog:
		body = fmt.Sprintf(chatLogTemplate, text)
	default:
		body = text
	}
	return body + fmt.Sprintf(tagInstruction, delimiter, delimiter)
}
