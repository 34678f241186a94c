package session

import "time"

// LoadingInterval is how long each loading message stays on screen
const LoadingInterval = 2 * time.Second

// LoadingMessages are cycled while a roast is being generated
var LoadingMessages = []string{
	"Scanning your okrika outfit...",
	"Consulting the Ministry of Vawulence...",
	"Checking if you get urgent 2k...",
	"Wait make I wear my glasses...",
	"Cooking up serious breakfast...",
	"Analysing your sapa level...",
	"This one go loud o...",
	"Gathering receipts...",
}

// LoadingMessage returns the message for the given tick count
func LoadingMessage(tick int) string {
	if tick < 0 {
		tick = -tick
	}
	return LoadingMessages[tick%len(LoadingMessages)]
}
