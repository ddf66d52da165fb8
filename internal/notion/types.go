package notion

// QueryRequest is the body of POST /v1/databases/{id}/query.
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

type Filter struct {
	And []PropertyFilter `json:"and,omitempty"`
}

type PropertyFilter struct {
	Property string           `json:"property"`
	Status   *StatusCondition `json:"status,omitempty"`
}

type StatusCondition struct {
	Equals       string `json:"equals,omitempty"`
	DoesNotEqual string `json:"does_not_equal,omitempty"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type QueryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Page is a database row or a standalone page.
type Page struct {
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// Property holds the page property value variants used here. Only the
// field matching Type is populated.
type Property struct {
	Type     string     `json:"type"`
	Title    []RichText `json:"title,omitempty"`
	People   []Person   `json:"people,omitempty"`
	Relation []Relation `json:"relation,omitempty"`
	Status   *Option    `json:"status,omitempty"`
	Select   *Option    `json:"select,omitempty"`
}

type RichText struct {
	PlainText string `json:"plain_text"`
}

type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Relation struct {
	ID string `json:"id"`
}

type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Database is the schema returned by GET /v1/databases/{id}.
type Database struct {
	ID         string                    `json:"id"`
	Properties map[string]SchemaProperty `json:"properties"`
}

type SchemaProperty struct {
	Type   string      `json:"type"`
	Status *OptionList `json:"status,omitempty"`
	Select *OptionList `json:"select,omitempty"`
}

type OptionList struct {
	Options []Option `json:"options"`
}

// plainTitle returns the first plain text run of a title property.
func (p Property) plainTitle() string {
	if len(p.Title) == 0 {
		return ""
	}
	return p.Title[0].PlainText
}

// optionName returns the selected status or select option.
func (p Property) optionName() string {
	switch {
	case p.Status != nil:
		return p.Status.Name
	case p.Select != nil:
		return p.Select.Name
	default:
		return ""
	}
}
