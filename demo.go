package main

import "github.com/robmorgan/pulse/cuelist"

// demoCueList is the show played when no cue file is given.
func demoCueList() *cuelist.CueList {
	cl := cuelist.NewCueList("love sensation")

	cues := []*cuelist.Cue{
		// Cue #1: cycle the middle PARs every half note from the second bar.
		{Name: "cycle middle pars", At: "1m", Every: "2n", For: "2m"},
		// Cue #2: middle PARs off, strobe the top PARs.
		{Name: "middle pars off", At: "3m", Once: true},
		{Name: "strobe top pars", At: "3m", Every: "16n", For: "1m"},
		{Name: "blackout", At: "4m - 16n"},
	}
	for _, cue := range cues {
		if err := cl.Add(cue); err != nil {
			panic(err)
		}
	}

	return cl
}
