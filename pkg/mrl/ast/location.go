package ast

import "mercator-hq/callisto/pkg/mrl/errors"

// Location is the position of a node or token within the original rule
// text. It lives in the errors package, which must not import this one,
// and is aliased here where most callers reach for it.
type Location = errors.Location
