package vox

import "voxbar/internal/launch"

const (
	textNotUnderstood    = `I heard "%s", but I'm not sure what to do with that.`
	textWebSearch        = `Searching the web for "%s"...`
	textOpenFailed       = "Sorry, I had trouble opening that. Make sure it's installed correctly."
	textCommandFailed    = "Sorry, that command failed to run."
	textOtherFailed      = "Sorry, I had trouble with that command."
	textActionProblem    = "Sorry, I had a problem with the action: %s."
	textCalcFailed       = "Sorry, that doesn't look like a valid calculation."
	textGeoUnreachable   = "Sorry, I had trouble connecting to the location service."
	textGeoNotFound      = "Sorry, I couldn't find a location named %s."
	textWeatherFailed    = "Sorry, an unexpected error occurred while getting the weather."
	textWeather          = "Here's the weather from MSN for %s."
	textCityTime         = "The time in %s is %s."
	textCityTimeFailed   = "Sorry, I couldn't find the time for '%s'. Please try a more specific city name."
	textCityChoice       = "I found a few places with that name. Which one did you mean?"
	textAppChoice        = "I found a few options. Which one did you mean?"
	textAppFallback      = `I couldn't find "%s" in your applications, but I'll try opening it directly.`
	textLocalTime        = "The local time is %s"
	textDate             = "Today's date is %s"
	textVersion          = "I'm running on version %s."
	textDrumroll         = "Here goes nothing!"
	textNoReminders      = "You don't have any reminders set."
	textReminders        = "Here are your reminders."
	textReminderSet      = `OK. I'll remind you to "%s" on %s.`
	textReminderUpdated  = "OK. I've updated your reminder."
	textReminderMissing  = "Please enter both a reminder and a valid time."
	textReminderPast     = "Sorry, that time has already passed."
	textReminderNotFound = "Sorry, I couldn't find that reminder."
	textRetiled          = "Retiled? You mean that one project that gives discontinued services like me a second life? Noble work."
	textIdentity         = "I'm Voxbar, a little assistant that lives in a search bar on your desktop."
	textAffiliation      = "No. I'm an independent project and not affiliated with any company."
	textCapabilities     = "I can get the time, date, and weather. I can also do math, set reminders, open apps, tell jokes, and search the web."
	textFlirt            = "I honestly don't think that's in the cards for us."
	textInappropriate    = "What kind of assistant do you think I am??"
	textStatus           = "Nothing much. What may I help you with?"
	textHelloWorld       = "Hello world."
)

var (
	thanksReplies   = []string{"You're welcome!", "No problem.", "Happy to help!"}
	farewellReplies = []string{"Goodbye!", "See you later.", "Catch you later."}
	greetingReplies = []string{"Hello there. How can I help you?", "Hi! What's on your mind?", "Hey! What can I do for you?"}
	idleGreetings   = []string{"What's on your mind?", "Hello!", "How can I help?", "Hi!", "Ask me anything."}
)

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"I told my wife she should embrace her mistakes. She gave me a hug.",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
	"I'm reading a book on anti-gravity. It's impossible to put down!",
	"What do you call a fake noodle? An Impasta!",
	"Why don't skeletons fight each other? They don't have the guts.",
	"Why did the math book look sad? Because it had too many problems.",
	"Why can't you hear a pterodactyl go to the bathroom? Because the 'P' is silent.",
	"What do you call cheese that isn't yours? Nacho cheese.",
	"Why did the golfer bring two pairs of pants? In case he got a hole in one.",
	"How do you organize a space party? You planet.",
	"Why did the bicycle fall over? Because it was two-tired.",
	"What do you call a fish wearing a bowtie? Sofishticated.",
	"What did the zero say to the eight? Nice belt!",
	"Where do you learn to make ice cream? Sundae school.",
	"How does a penguin build its house? Igloos it together.",
	"I used to be a baker, but I couldn't make enough dough.",
	"Why don't eggs tell jokes? They'd crack each other up.",
	"What's a vampire's favorite fruit? A neck-tarine.",
	"What did one wall say to the other? I'll meet you at the corner.",
	"Why did the invisible man turn down the job offer? He couldn't see himself doing it.",
	"What's orange and sounds like a parrot? A carrot.",
	"Did you hear about the restaurant on the moon? Great food, no atmosphere.",
	"What do you call a bear with no teeth? A gummy bear.",
	"Why are pirates called pirates? Because they arrrr!",
	"Why couldn't the bicycle stand up by itself? Because it was two tired.",
	"When does a joke become a dad joke? When it becomes apparent.",
	"I have a joke about construction, but I'm still working on it.",
	"Why do bees have sticky hair? Because they use a honeycomb.",
	"What do you call a sad strawberry? A blueberry.",
	"I don't trust stairs. They're always up to something.",
	"What do you call someone with no body and no nose? Nobody knows.",
	"Why was the stadium so cool? It was full of fans.",
}

func commandFailedText(kind string) string {
	switch kind {
	case launch.FailOpenApplication:
		return textOpenFailed
	case launch.FailRunCommand:
		return textCommandFailed
	}
	return textOtherFailed
}
