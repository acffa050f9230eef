package classifier

import (
	"encoding/json"
	"fmt"
)

// Match is the payload of a DeFi classification.
type Match struct {
	Protocol string `json:"protocol"`
	Action   string `json:"action"`
	Type     string `json:"type"`
	Group    string `json:"group"`
	Exchange string `json:"exchange"`
}

// Classification is either "not DeFi", which carries nothing, or a DeFi
// Match. The zero value is not DeFi.
type Classification struct {
	match Match
	ok    bool
}

func NotDeFi() Classification {
	return Classification{}
}

func DeFi(m Match) Classification {
	return Classification{match: m, ok: true}
}

func (c Classification) IsDeFi() bool {
	return c.ok
}

func (c Classification) Match() (Match, bool) {
	return c.match, c.ok
}

// Protocol is the matched protocol name or "" for not DeFi.
func (c Classification) Protocol() string {
	return c.match.Protocol
}

func (c Classification) String() string {
	if !c.ok {
		return "not-defi"
	}
	return fmt.Sprintf("%s/%s (%s, %s, %s)", c.match.Protocol, c.match.Action, c.match.Type, c.match.Group, c.match.Exchange)
}

type classificationJSON struct {
	IsDeFi   bool    `json:"is_defi"`
	Protocol *string `json:"protocol"`
	Action   *string `json:"action"`
	Type     *string `json:"type"`
	Group    *string `json:"group"`
	Exchange *string `json:"exchange"`
}

func (c Classification) MarshalJSON() ([]byte, error) {
	if !c.ok {
		return json.Marshal(classificationJSON{})
	}
	m := c.match
	return json.Marshal(classificationJSON{
		IsDeFi:   true,
		Protocol: &m.Protocol,
		Action:   &m.Action,
		Type:     &m.Type,
		Group:    &m.Group,
		Exchange: &m.Exchange,
	})
}

func (c *Classification) UnmarshalJSON(data []byte) error {
	var raw classificationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.IsDeFi {
		*c = NotDeFi()
		return nil
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	*c = DeFi(Match{
		Protocol: deref(raw.Protocol),
		Action:   deref(raw.Action),
		Type:     deref(raw.Type),
		Group:    deref(raw.Group),
		Exchange: deref(raw.Exchange),
	})
	return nil
}
