// Package model contains domain models passed between layers.
package model

// Profile is a producer's public profile. One document per user, keyed by
// the user identifier.
type Profile struct {
	Name     string   `json:"name"`
	Genres   []string `json:"genres"`
	Location string   `json:"location"`
	Balance  float64  `json:"balance"`
	Currency string   `json:"currency"`
	Avatar   string   `json:"avatar"`
	Cover    string   `json:"cover"`
	About    string   `json:"about"`
	Social   Social   `json:"social"`
}

// Social maps platform names to handles or URLs.
type Social struct {
	YouTube   string `json:"youtube"`
	Telegram  string `json:"telegram"`
	VK        string `json:"vk"`
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
}

func (s Social) document() map[string]any {
	return map[string]any{
		"youtube":   s.YouTube,
		"telegram":  s.Telegram,
		"vk":        s.VK,
		"instagram": s.Instagram,
		"twitter":   s.Twitter,
	}
}

// Document renders the profile as store fields.
func (p Profile) Document() map[string]any {
	return map[string]any{
		"name":     p.Name,
		"genres":   cloneStrings(p.Genres),
		"location": p.Location,
		"balance":  p.Balance,
		"currency": p.Currency,
		"avatar":   p.Avatar,
		"cover":    p.Cover,
		"about":    p.About,
		"social":   p.Social.document(),
	}
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	p.Genres = cloneStrings(p.Genres)
	return p
}

// ProfilePatch carries a partial profile update. Nil fields are left
// untouched; Genres is unset when nil and cleared when empty. Social, when
// set, replaces the whole mapping.
type ProfilePatch struct {
	Name     *string  `json:"name,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	Location *string  `json:"location,omitempty"`
	Balance  *float64 `json:"balance,omitempty"`
	Currency *string  `json:"currency,omitempty"`
	Avatar   *string  `json:"avatar,omitempty"`
	Cover    *string  `json:"cover,omitempty"`
	About    *string  `json:"about,omitempty"`
	Social   *Social  `json:"social,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p ProfilePatch) IsEmpty() bool {
	return len(p.Document()) == 0
}

// Document renders only the fields the patch sets.
func (p ProfilePatch) Document() map[string]any {
	doc := make(map[string]any)
	setString(doc, "name", p.Name)
	if p.Genres != nil {
		doc["genres"] = cloneStrings(p.Genres)
	}
	setString(doc, "location", p.Location)
	if p.Balance != nil {
		doc["balance"] = *p.Balance
	}
	setString(doc, "currency", p.Currency)
	setString(doc, "avatar", p.Avatar)
	setString(doc, "cover", p.Cover)
	setString(doc, "about", p.About)
	if p.Social != nil {
		doc["social"] = p.Social.document()
	}
	return doc
}

// Apply returns prof with the patch merged in.
func (p ProfilePatch) Apply(prof Profile) Profile {
	out := prof.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Genres != nil {
		out.Genres = cloneStrings(p.Genres)
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Balance != nil {
		out.Balance = *p.Balance
	}
	if p.Currency != nil {
		out.Currency = *p.Currency
	}
	if p.Avatar != nil {
		out.Avatar = *p.Avatar
	}
	if p.Cover != nil {
		out.Cover = *p.Cover
	}
	if p.About != nil {
		out.About = *p.About
	}
	if p.Social != nil {
		out.Social = *p.Social
	}
	return out
}

// BalancePatch builds a patch that only sets the balance.
func BalancePatch(balance float64) ProfilePatch {
	return ProfilePatch{Balance: &balance}
}

func setString(doc map[string]any, key string, v *string) {
	if v != nil {
		doc[key] = *v
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
