package cuelist

import (
	"errors"
	"io"
	"os"

	goerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/pulse/logger"
	"gopkg.in/yaml.v3"
)

var ErrInvalidCue = errors.New("invalid cue")

// CueList is a named set of cues, usually loaded from YAML:
//
//	name: intro
//	cues:
//	  - name: kick
//	    every: 4n
//	  - name: drop
//	    at: 8m
//	    once: true
type CueList struct {
	Name string `yaml:"name"`
	Cues []*Cue `yaml:"cues"`
}

func NewCueList(name string) *CueList {
	logger.GetProjectLogger().Debugf("Cue list created with name: %s", name)

	return &CueList{
		Name: name,
		Cues: make([]*Cue, 0),
	}
}

// Add validates a cue and appends it to the list.
func (cl *CueList) Add(cue *Cue) error {
	if err := cue.Validate(); err != nil {
		return err
	}
	cl.Cues = append(cl.Cues, cue)
	return nil
}

// Validate checks every cue in the list.
func (cl *CueList) Validate() error {
	for _, cue := range cl.Cues {
		if err := cue.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Load decodes and validates a cue list. Unknown keys are rejected.
// Validation failures match ErrInvalidCue or timeexpr.ErrSyntax.
func Load(r io.Reader) (*CueList, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	cl := NewCueList("main")
	if err := dec.Decode(cl); err != nil && !errors.Is(err, io.EOF) {
		return nil, goerrors.WithStackTrace(err)
	}
	if err := cl.Validate(); err != nil {
		return nil, err
	}

	return cl, nil
}

func LoadFile(path string) (*CueList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerrors.WithStackTrace(err)
	}
	defer f.Close()

	return Load(f)
}
