package program

import (
	"github.com/R3E-Network/socialfeed/internal/codec"
	"github.com/R3E-Network/socialfeed/internal/ledger"
)

// Reserved account space, discriminator included.
const (
	ProfileSpace = codec.DiscriminatorSize + ledger.AddressSize + 8
	PostSpace    = codec.DiscriminatorSize + ledger.AddressSize + 8192 + 8 + 8
)

// UserProfile is created once per owner and counts the posts they created.
type UserProfile struct {
	Owner     ledger.Address `json:"owner"`
	PostCount uint64         `json:"post_count"`
}

func (p *UserProfile) Kind() string { return "UserProfile" }

func (p *UserProfile) Encode(data *[]byte) {
	codec.PutFixed(p.Owner[:], data)
	codec.PutUint64(p.PostCount, data)
}

func (p *UserProfile) Decode(data []byte, position int) int {
	position = parseAddress(data, position, &p.Owner)
	p.PostCount, position = codec.ParseUint64(data, position)
	return position
}

// Comment is immutable once appended.
type Comment struct {
	Author    ledger.Address `json:"author"`
	Content   string         `json:"content"`
	Timestamp int64          `json:"timestamp"`
}

func (c *Comment) encode(data *[]byte) {
	codec.PutFixed(c.Author[:], data)
	codec.PutString(c.Content, data)
	codec.PutInt64(c.Timestamp, data)
}

func (c *Comment) decode(data []byte, position int) int {
	position = parseAddress(data, position, &c.Author)
	c.Content, position = codec.ParseString(data, position)
	c.Timestamp, position = codec.ParseInt64(data, position)
	return position
}

// Post is stored at the address derived from its author and the author's
// post count at creation time.
type Post struct {
	Author    ledger.Address `json:"author"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	LikeCount uint64         `json:"like_count"`
	Comments  []Comment      `json:"comments"`
}

func (p *Post) Kind() string { return "Post" }

func (p *Post) Encode(data *[]byte) {
	codec.PutFixed(p.Author[:], data)
	codec.PutString(p.Title, data)
	codec.PutString(p.Content, data)
	codec.PutUint64(p.LikeCount, data)
	codec.PutUint32(uint32(len(p.Comments)), data)
	for i := range p.Comments {
		p.Comments[i].encode(data)
	}
}

func (p *Post) Decode(data []byte, position int) int {
	position = parseAddress(data, position, &p.Author)
	p.Title, position = codec.ParseString(data, position)
	p.Content, position = codec.ParseString(data, position)
	p.LikeCount, position = codec.ParseUint64(data, position)

	var count uint32
	count, position = codec.ParseUint32(data, position)
	p.Comments = make([]Comment, 0)
	for i := uint32(0); i < count && position <= len(data); i++ {
		var c Comment
		position = c.decode(data, position)
		p.Comments = append(p.Comments, c)
	}
	return position
}

func parseAddress(data []byte, position int, out *ledger.Address) int {
	raw, next := codec.ParseFixed(data, position, ledger.AddressSize)
	if raw != nil {
		copy(out[:], raw)
	}
	return next
}
