package classify

import "encoding/gob"

func init() {
	gob.Register(&LogisticRegression{})
	gob.Register(&KNN{})
	gob.Register(&SVC{})
}
