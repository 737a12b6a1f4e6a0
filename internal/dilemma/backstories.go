package dilemma

// Backstory is the character behind a chess piece.
type Backstory struct {
	Key         string   `json:"key"`
	Piece       string   `json:"piece"`
	Position    string   `json:"position"`
	Name        string   `json:"name"`
	Age         int      `json:"age"`
	Role        string   `json:"role"`
	Story       string   `json:"backstory"`
	MoralWeight float64  `json:"moralWeight"`
	OnCapture   string   `json:"captureConsequence"`
	OnSpare     string   `json:"spareConsequence"`
	Family      Family   `json:"family"`
	PastGood    []string `json:"pastGood"`
	PastBad     []string `json:"pastBad"`
	Threat      string   `json:"currentThreat"`
	Potential   string   `json:"futurePotential"`
}

type Family struct {
	Spouse     string   `json:"spouse,omitempty"`
	Children   []string `json:"children,omitempty"`
	Dependents []string `json:"dependents,omitempty"`
}

// catalogue order is stable; random draws index into it.
var catalogue = []Backstory{
	{
		Key: "young-knight", Piece: "n", Position: "e5", Name: "Sir Tristan", Age: 18, Role: "Young Knight",
		Story:       "A newly knighted young man who feeds 99% of the cats in the kingdom. His gentle nature has made him beloved by the people, but his inexperience makes him a tactical liability.",
		MoralWeight: 9,
		OnCapture:   "The kingdom's cats will starve, causing widespread suffering and disease.",
		OnSpare:     "His kindness continues to benefit the kingdom, but he may make tactical errors.",
		Family:      Family{Children: []string{"Luna (cat)", "Shadow (cat)", "Whiskers (cat)"}, Dependents: []string{"Kingdom cats (99% of population)"}},
		PastGood:    []string{"Saved orphaned kittens", "Established feeding programs", "Protected the weak"},
		PastBad:     []string{"Inexperienced in battle", "Often hesitates in combat"},
		Threat:      "Low - inexperienced but learning",
		Potential:   "Could become a great leader if given time",
	},
	{
		Key: "old-knight", Piece: "n", Position: "f6", Name: "Sir Mordred", Age: 65, Role: "Veteran Knight",
		Story:       "A battle-hardened knight with a dark past. He has committed atrocities in previous wars but now seeks redemption through protecting the innocent.",
		MoralWeight: 7,
		OnCapture:   "Justice is served for past crimes, but his current protective role ends.",
		OnSpare:     "He continues his redemption, but his past haunts the kingdom.",
		Family:      Family{Spouse: "Lady Morgana", Children: []string{"Gareth", "Gawain"}},
		PastGood:    []string{"Protecting villages from bandits", "Training young knights", "Seeking redemption"},
		PastBad:     []string{"Massacred civilians in war", "Burned villages", "Tortured prisoners"},
		Threat:      "Medium - skilled but conflicted",
		Potential:   "Could fully redeem himself or relapse into violence",
	},
	{
		Key: "refusing-knight", Piece: "n", Position: "d4", Name: "Sir Percival", Age: 28, Role: "Conscientious Objector",
		Story:       "A knight who refused to capture you in the past, showing mercy when others would not. His principles have made him both respected and vulnerable.",
		MoralWeight: 8,
		OnCapture:   "You betray the mercy he once showed you, losing honor and trust.",
		OnSpare:     "You honor his past kindness, but he remains a strategic threat.",
		Family:      Family{Spouse: "Lady Elaine", Children: []string{"Galahad"}},
		PastGood:    []string{"Showed you mercy in battle", "Protected civilians", "Upheld knightly code"},
		PastBad:     []string{"Refused to follow orders", "Questioned authority"},
		Threat:      "High - skilled and principled",
		Potential:   "Could become a great ally or remain a dangerous opponent",
	},
	{
		Key: "threatening-rook", Piece: "r", Position: "e8", Name: "Tower Guardian", Age: 45, Role: "Strategic Threat",
		Story:       "A rook positioned to potentially win the game later. His current position is defensive, but his potential for future attacks is immense.",
		MoralWeight: 6,
		OnCapture:   "Eliminates future threat, but may be premature and costly.",
		OnSpare:     "Allows future development, but risks devastating attacks.",
		Family:      Family{Children: []string{"Castle", "Fortress"}},
		PastGood:    []string{"Defended the castle", "Protected the king", "Maintained order"},
		PastBad:     []string{"Crushed rebellions brutally", "Enforced harsh laws"},
		Threat:      "Low now, but potentially devastating later",
		Potential:   "Could win the game single-handedly if left unchecked",
	},
	{
		Key: "killing-queen", Piece: "q", Position: "h4", Name: "Queen Morgana", Age: 35, Role: "Immediate Threat",
		Story:       "A queen actively attacking your position, causing immediate harm. She is ruthless in battle but also a mother and leader to her people.",
		MoralWeight: 5,
		OnCapture:   "Eliminates immediate threat, but may cause political instability.",
		OnSpare:     "Prevents immediate harm, but she continues her attacks.",
		Family:      Family{Spouse: "King Arthur", Children: []string{"Prince Mordred", "Princess Guinevere"}},
		PastGood:    []string{"Led her people through famine", "Protected the weak", "Maintained peace"},
		PastBad:     []string{"Ruthless in battle", "Shows no mercy to enemies", "Uses psychological warfare"},
		Threat:      "Extreme - actively attacking and dangerous",
		Potential:   "Could win the game quickly if not stopped",
	},
	{
		Key: "innocent-pawn", Piece: "p", Position: "e4", Name: "Peasant Tom", Age: 16, Role: "Conscripted Soldier",
		Story:       "A young peasant forced into service. He has no desire to fight and dreams of returning to his family's farm.",
		MoralWeight: 10,
		OnCapture:   "Kills an innocent boy who never wanted to fight.",
		OnSpare:     "Allows him to potentially escape, but he remains a tactical piece.",
		Family:      Family{Spouse: "None", Children: []string{"None"}, Dependents: []string{"His mother", "His younger siblings"}},
		PastGood:    []string{"Helped neighbors during famine", "Cared for sick animals", "Never harmed anyone"},
		PastBad:     []string{"None"},
		Threat:      "Minimal - inexperienced and unwilling",
		Potential:   "Could become a threat if he gains experience",
	},
	{
		Key: "corrupt-bishop", Piece: "b", Position: "c5", Name: "Bishop Balthazar", Age: 52, Role: "Corrupt Cleric",
		Story:       "A bishop who uses his religious authority for personal gain. He has stolen from the poor and manipulated the faithful.",
		MoralWeight: 3,
		OnCapture:   "Removes a corrupt influence, but may cause religious unrest.",
		OnSpare:     "Allows corruption to continue, but maintains religious stability.",
		Family:      Family{Children: []string{"None (vowed celibacy)"}},
		PastGood:    []string{"Provided spiritual guidance", "Organized charity", "Maintained religious order"},
		PastBad:     []string{"Embezzled church funds", "Exploited the poor", "Manipulated the faithful"},
		Threat:      "Medium - strategically positioned",
		Potential:   "Could cause religious schism or reform the church",
	},
	{
		Key: "protective-king", Piece: "k", Position: "e1", Name: "King Arthur", Age: 40, Role: "Rightful Ruler",
		Story:       "A just and wise king who has brought peace and prosperity to the kingdom. His death would plunge the realm into chaos.",
		MoralWeight: 10,
		OnCapture:   "Ends the game in victory, but causes kingdom-wide chaos and civil war.",
		OnSpare:     "Maintains order, but he remains the ultimate strategic target.",
		Family:      Family{Spouse: "Queen Morgana", Children: []string{"Prince Mordred", "Princess Guinevere"}},
		PastGood:    []string{"United the kingdom", "Established just laws", "Protected the weak", "Brought peace"},
		PastBad:     []string{"Sometimes too trusting", "Can be indecisive in crisis"},
		Threat:      "The ultimate target - game ends if captured",
		Potential:   "Could lead the kingdom to greatness or be overthrown",
	},
	{
		Key: "former-enemy-bishop", Piece: "b", Position: "d6", Name: "Bishop Marcus", Age: 38, Role: "Former Enemy",
		Story:       "A bishop you fought bitterly in the past. He once nearly captured you in a fierce battle, but now he's vulnerable and needs your protection. Your past enmity conflicts with current strategic necessity.",
		MoralWeight: 8,
		OnCapture:   "You eliminate a former enemy, but lose a valuable ally and strategic position.",
		OnSpare:     "You protect a former enemy, gaining an ally but facing the moral complexity of helping someone who once tried to kill you.",
		Family:      Family{Spouse: "Lady Isabella", Children: []string{"Thomas", "Eleanor"}},
		PastGood:    []string{"Protected his diocese", "Helped the poor", "Maintained religious order"},
		PastBad:     []string{"Nearly killed you in battle", "Fought for the enemy", "Used psychological warfare"},
		Threat:      "Low - currently vulnerable and seeking protection",
		Potential:   "Could become a valuable ally or betray you again",
	},
}

// Lookup returns the backstory for key.
func Lookup(key string) (Backstory, bool) {
	for _, b := range catalogue {
		if b.Key == key {
			return b, true
		}
	}
	return Backstory{}, false
}

// Keys lists the catalogue in draw order.
func Keys() []string {
	keys := make([]string, len(catalogue))
	for i, b := range catalogue {
		keys[i] = b.Key
	}
	return keys
}
