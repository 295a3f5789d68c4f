package storyverse

import "math/rand/v2"

// Choice lists offered by the setup screens.
var (
	CharacterRoles  = []string{"Hero", "Villain", "Wanderer"}
	Genres          = []string{"Fantasy", "Sci-Fi", "Mystery", "Romance", "Thriller", "Historical"}
	Languages       = []string{"English", "Spanish", "French", "German", "Hindi", "Chinese"}
	StoryFormats    = []string{"Novel", "Short Story", "Screenplay", "Television Script", "Play"}
	AestheticStyles = []string{TwentiethCenturyAesthetic}
	StoryEras       = []string{
		"1920s Modernist",
		"1940s Noir",
		"1950s Stage Drama",
		"1960s Beatnik",
		"1980s Television",
		"1990s Speculative Fiction",
	}
)

const TwentiethCenturyAesthetic = "20th-century aesthetic"

var moodScenes = map[string][]string{
	"Fantasy": {
		"🌌✨🌲🌲🏰🌲🌲✨🌌",
		"🐉⚔️🛡️🔮📖✨",
		"🧚‍♀️🌿🍄🦌 enchanted forest🦉🏞️",
	},
	"Sci-Fi": {
		"👽 SCI-FI MODE 👽",
		"🌌🚀🪐🛰️⚡🌠🧬",
		"🤖 Cyberpunk City 🏙️🌃🔌",
	},
	"Mystery": {
		"🕵️‍♂️ WHO DUN IT? 🔎",
		"dimly lit alleyway 🌃🌧️🚶‍♀️",
		"❓❓👁️‍🗨️💡🕵️‍♀️",
	},
	"Horror": {
		"💀 GHOULISH GRIN 👹",
		"🏚️🕸️🕯️🔪🩸",
		"🎃👻💀🏚️ Beware the night 🦇",
	},
	"Romance": {
		"💖 LOVESTRUCK ❤️‍🔥",
		"💞💌🌹🥂✨",
		"🌅👩‍❤️‍👨🌆✨ Sweet whispers 💖",
	},
	"Adventure": {
		"🗺️ EXPLORE! 🧭",
		"🏞️⛰️🛶🧭🏕️",
	},
}

var posterMoods = map[string]string{
	"Novel":             "📘🖋️ Classic 20th-century novel cover: muted tones, silhouette of main character, dramatic font.",
	"Short Story":       "📚📰 Vintage magazine vibe: pulp fiction colors, 2D cover blurbs, exaggerated drama.",
	"Television Script": "📺📝 1980s title card: big bold serif font, freeze-frame energy, theme song feel.",
	"Screenplay":        "🎬📃 Black Courier on white: scene header, centered title, \"FADE IN:\" on first line.",
	"Play":              "🎭🕯️ Broadway poster: spotlight, single figure on stage, marquee font, deep reds and golds.",
}

var visualConceptKinds = map[string]string{
	"Novel":             "book cover",
	"Short Story":       "magazine cover",
	"Screenplay":        "movie poster",
	"Television Script": "TV show title card",
	"Play":              "playbill poster",
}

// MoodScene picks a decorative banner for the genre, or "" when the genre
// has none.
func MoodScene(genre string) string {
	scenes := moodScenes[genre]
	if len(scenes) == 0 {
		return ""
	}
	return scenes[rand.IntN(len(scenes))]
}

// PosterMood describes the cover style associated with a story format.
func PosterMood(format string) string {
	return posterMoods[format]
}

// VisualConceptKind names the kind of artwork requested for a format.
func VisualConceptKind(format string) string {
	return visualConceptKinds[format]
}
