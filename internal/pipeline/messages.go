package pipeline

const (
	messageTranscriptLineFormat  = ":microphone2: **You:** %s"
	messageReplyLineFormat       = ":speech_balloon: **AI:** %s"
	messageTranslationFailedHint = "-# Translation to Meitei Mayek failed; the reply is shown in English."
)
