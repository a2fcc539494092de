package story

func newTestContent(lang string) *Content {
	return &Content{
		Meta:      Meta{ChapterID: "chapter1", Lang: lang},
		EntryNode: "l1",
		Strings: Strings{
			StartBtn:  "Start",
			DeathText: "You died",
			Speaker:   "Fox",
			UI:        map[string]string{"settings": "Settings", "ooxxDraw": "Draw"},
			Text: map[string]string{
				"t1":     "Hello.",
				"t2":     "Welcome to the shrine.",
				"title":  "What will you do?",
				"o_pet":  "Pet the fox",
				"o_play": "Play a game",
				"o_run":  "Run away",
				"r_pet":  "The fox purrs.",
				"r_pet2": "It seems happy.",
			},
		},
		Nodes: []Node{
			{ID: "l1", Type: NodeLine, TextKey: "t1", NextNodeID: "l2"},
			{ID: "l2", Type: NodeLine, TextKey: "t2", NextNodeID: "c1"},
			{ID: "c1", Type: NodeChoice, TitleKey: "title", Options: []ChoiceOption{
				{ID: "pet", TextKey: "o_pet", NextNodeID: "rp1"},
				{ID: "play", TextKey: "o_play", ActionID: "start_ooxx"},
				{ID: "run", TextKey: "o_run", NextNodeID: "j1"},
			}},
			{ID: "rp1", Type: NodeLine, TextKey: "r_pet", NextNodeID: "rp2"},
			{ID: "rp2", Type: NodeLine, TextKey: "r_pet2", NextNodeID: "a_fox"},
			{ID: "a_fox", Type: NodeAction, ActionID: "show_pet_fox"},
			{ID: "j1", Type: NodeJump, NextNodeID: "a_death"},
			{ID: "a_death", Type: NodeAction, ActionID: "trigger_death"},
			{ID: "fin", Type: NodeEnd},
		},
	}
}
