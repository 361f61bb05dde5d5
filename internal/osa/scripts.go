package osa

// Script templates for the Messages automation surface. Every template
// is a complete program taking its inputs as positional arguments via
// "on run argv". Caller-controlled text (bodies, recipients, chat
// names) is never spliced into script source, which closes both the
// injection hole and the quoting failures that plagued inline scripts.

// ScriptSendToChatID sends a body to a scriptable chat identifier.
// argv: 1=chat id, 2=body.
const ScriptSendToChatID = `on run argv
	set chatId to item 1 of argv
	set theBody to item 2 of argv
	tell application "Messages"
		set targetChat to a reference to text chat id chatId
		send theBody to targetChat
	end tell
	return "sent"
end run
`

// ScriptSendToChatNamed iterates existing conversations and sends to
// the first whose name matches the requested one exactly.
// argv: 1=chat name, 2=body.
const ScriptSendToChatNamed = `on run argv
	set chatName to item 1 of argv
	set theBody to item 2 of argv
	tell application "Messages"
		repeat with c in text chats
			if name of c is chatName then
				send theBody to c
				return "sent"
			end if
		end repeat
	end tell
	error "no chat named " & chatName
end run
`

// ScriptSendToChatContaining is the lenient second pass over existing
// conversations: first chat whose name contains the requested text.
// argv: 1=chat name fragment, 2=body.
const ScriptSendToChatContaining = `on run argv
	set chatName to item 1 of argv
	set theBody to item 2 of argv
	tell application "Messages"
		repeat with c in text chats
			if name of c contains chatName then
				send theBody to c
				return "sent"
			end if
		end repeat
	end tell
	error "no chat name contains " & chatName
end run
`

// ScriptSendToParticipant sends to a single raw address on the
// iMessage service, falling back to an enabled SMS account when the
// address is numeric and iMessage refuses it.
// argv: 1=address, 2=body.
const ScriptSendToParticipant = `on run argv
	set theAddress to item 1 of argv
	set theBody to item 2 of argv
	tell application "Messages"
		try
			set imService to 1st service whose service type = iMessage
			send theBody to participant theAddress of imService
			return "sent:iMessage"
		on error imErr
			set looksNumeric to false
			repeat with d in {"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
				if theAddress contains d then
					set looksNumeric to true
					exit repeat
				end if
			end repeat
			if looksNumeric then
				set smsService to first account whose service type = SMS and enabled is true
				send theBody to participant theAddress of smsService
				return "sent:SMS"
			end if
			error "iMessage failed and SMS unavailable: " & imErr
		end try
	end tell
end run
`

// ScriptCreateChatAndSend creates a new conversation with the given
// participant set and sends immediately. Restricted on some Messages
// versions; callers treat failure here as terminal.
// argv: 1=body, 2..n=addresses.
const ScriptCreateChatAndSend = `on run argv
	set theBody to item 1 of argv
	tell application "Messages"
		set imService to 1st service whose service type = iMessage
		set theBuddies to {}
		repeat with i from 2 to count of argv
			set end of theBuddies to participant (item i of argv) of imService
		end repeat
		set newChat to make new text chat with properties {participants:theBuddies}
		send theBody to newChat
	end tell
	return "sent"
end run
`
