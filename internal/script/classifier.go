package script

type Script int

const (
	Latin Script = iota
	Meitei
)

const DefaultMeiteiThreshold = 3

// Meitei Mayek block. The extensions block at U+AAE0 is not counted.
const (
	meiteiFirst = 0xABC0
	meiteiLast  = 0xABFF
)

func (s Script) String() string {
	if s == Meitei {
		return "meitei"
	}
	return "latin"
}

// Classifier labels text Meitei when it holds at least Threshold Meitei Mayek
// code points, so a single stray glyph does not switch the translation path.
type Classifier struct {
	Threshold int
}

func NewClassifier(threshold int) Classifier {
	if threshold <= 0 {
		threshold = DefaultMeiteiThreshold
	}
	return Classifier{Threshold: threshold}
}

func (c Classifier) Classify(text string) Script {
	if CountMeitei(text) >= c.Threshold {
		return Meitei
	}
	return Latin
}

func CountMeitei(text string) int {
	n := 0
	for _, r := range text {
		if r >= meiteiFirst && r <= meiteiLast {
			n++
		}
	}
	return n
}
