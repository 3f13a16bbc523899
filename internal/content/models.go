package content

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// timeKeyLayout is fixed-width so formatted times sort lexically.
const timeKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Game is a catalogued title.
type Game struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Genre         string             `bson:"genre"`
	Description   string             `bson:"description"`
	ImgURL        string             `bson:"img_url"`
	AffiliateLink string             `bson:"affiliate_link"`
	CreatedBy     string             `bson:"created_by"`
	Date          time.Time          `bson:"date"`
}

func (g *Game) GetID() primitive.ObjectID   { return g.ID }
func (g *Game) SetID(id primitive.ObjectID) { g.ID = id }

func (g *Game) Stamp(createdBy string, at time.Time) {
	g.CreatedBy = createdBy
	g.Date = at.UTC()
}

func (g *Game) Field(name string) (string, bool) {
	switch name {
	case "name":
		return g.Name, true
	case "genre":
		return g.Genre, true
	case "description":
		return g.Description, true
	case "img_url":
		return g.ImgURL, true
	case "affiliate_link":
		return g.AffiliateLink, true
	case "created_by":
		return g.CreatedBy, true
	case "date":
		return g.Date.UTC().Format(timeKeyLayout), true
	}
	return "", false
}

// Genre groups games. Genres carry no timestamp.
type Genre struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	CreatedBy   string             `bson:"created_by"`
}

func (g *Genre) GetID() primitive.ObjectID   { return g.ID }
func (g *Genre) SetID(id primitive.ObjectID) { g.ID = id }

func (g *Genre) Stamp(createdBy string, _ time.Time) {
	g.CreatedBy = createdBy
}

func (g *Genre) Field(name string) (string, bool) {
	switch name {
	case "name":
		return g.Name, true
	case "description":
		return g.Description, true
	case "created_by":
		return g.CreatedBy, true
	}
	return "", false
}

// News is a dated article about a game.
type News struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Game      string             `bson:"game"`
	Genre     string             `bson:"genre"`
	Title     string             `bson:"title"`
	Text      string             `bson:"text"`
	CreatedBy string             `bson:"created_by"`
	Date      time.Time          `bson:"date"`
}

func (n *News) GetID() primitive.ObjectID   { return n.ID }
func (n *News) SetID(id primitive.ObjectID) { n.ID = id }

func (n *News) Stamp(createdBy string, at time.Time) {
	n.CreatedBy = createdBy
	n.Date = at.UTC()
}

func (n *News) Field(name string) (string, bool) {
	switch name {
	case "game":
		return n.Game, true
	case "genre":
		return n.Genre, true
	case "title":
		return n.Title, true
	case "text":
		return n.Text, true
	case "created_by":
		return n.CreatedBy, true
	case "date":
		return n.Date.UTC().Format(timeKeyLayout), true
	}
	return "", false
}

// Review is a user's write-up of a game.
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Game      string             `bson:"game"`
	Genre     string             `bson:"genre"`
	Content   string             `bson:"content"`
	CreatedBy string             `bson:"created_by"`
	Date      time.Time          `bson:"date"`
}

func (r *Review) GetID() primitive.ObjectID   { return r.ID }
func (r *Review) SetID(id primitive.ObjectID) { r.ID = id }

func (r *Review) Stamp(createdBy string, at time.Time) {
	r.CreatedBy = createdBy
	r.Date = at.UTC()
}

func (r *Review) Field(name string) (string, bool) {
	switch name {
	case "game":
		return r.Game, true
	case "genre":
		return r.Genre, true
	case "content":
		return r.Content, true
	case "created_by":
		return r.CreatedBy, true
	case "date":
		return r.Date.UTC().Format(timeKeyLayout), true
	}
	return "", false
}
