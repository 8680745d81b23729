package session

import "fmt"

const (
	commandListen = "listen"
	commandStop   = "stop"
	commandClear  = "clear"

	slashCommandListenDescription = "Start listening in the voice channel you are in."
	slashCommandStopDescription   = "Stop listening."
	slashCommandClearDescription  = "Forget the conversation so far."

	messageEphemeralWrongGuild        = ":warning: **This command is not available on this server.**"
	messageEphemeralUnknownCommand    = ":warning: **Unknown command.**"
	messageEphemeralVoiceLookupFailed = ":warning: **Could not check which voice channel you are in.**"
	messageEphemeralJoinVCFirst       = ":warning: **Join a voice channel first.**"
	messageEphemeralAlreadyRunning    = ":warning: **Already listening in <#%s>.**"
	messageEphemeralStartFailed       = ":warning: **Failed to start listening.**"
	messageEphemeralStopFailed        = ":warning: **Failed to stop listening cleanly.**"
	messageEphemeralNotRunning        = ":warning: **Not listening right now.**"
	messageEphemeralCleared           = ":broom: **Conversation cleared.**"

	messageStartEphemeralTitleFormat = ":microphone2: **Listening in** <#%s>"
	messageStopEphemeralTitleFormat  = ":pause_button: **Stopped listening in** <#%s>"
	messageStartEphemeralHint        = "-# Speak in English or Meitei Mayek. Use /stop to end."
	messageStopEphemeralHint         = "-# Use /listen to start again."

	messageStartChannel      = ":microphone2: **Listening.** Speak in English or Meitei Mayek."
	messageStopChannelFormat = ":pause_button: **Stopped listening.** %s"
)

const (
	stopReasonManualSlash  = "manual_slash"
	stopReasonServerClosed = "server_closed"
)

func startEphemeral(channelID string) string {
	return fmt.Sprintf(messageStartEphemeralTitleFormat, channelID) + "\n" + messageStartEphemeralHint
}

func stopEphemeral(channelID string) string {
	return fmt.Sprintf(messageStopEphemeralTitleFormat, channelID) + "\n" + messageStopEphemeralHint
}

func alreadyRunningEphemeral(channelID string) string {
	return fmt.Sprintf(messageEphemeralAlreadyRunning, channelID)
}

func stopChannelMessage(reason string) string {
	return fmt.Sprintf(messageStopChannelFormat, stopReasonDetail(reason))
}

func stopReasonDetail(reason string) string {
	switch reason {
	case stopReasonManualSlash:
		return "Someone ran /stop."
	case stopReasonServerClosed:
		return "The bot is shutting down."
	default:
		return "An unknown error occurred."
	}
}
