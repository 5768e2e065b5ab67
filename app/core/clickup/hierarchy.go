package clickup

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

type Kind string

const (
	KindTeam   Kind = "team"
	KindSpace  Kind = "space"
	KindFolder Kind = "folder"
	KindList   Kind = "list"
)

// Item is one node of the team > space > folder > list containment
// chain, reduced to what numbered choice prompts need.
type Item struct {
	Kind     Kind
	ID       string
	Name     string
	ParentID string
}

// Teams returns every team the token can access.
func (c *Client) Teams(ctx context.Context) ([]Item, error) {
	res, err := c.get(ctx, "/team", nil)
	if err != nil {
		return nil, err
	}
	return decodeItems(res.Get("teams"), KindTeam, ""), nil
}

// Spaces returns the spaces of one team.
func (c *Client) Spaces(ctx context.Context, teamID string) ([]Item, error) {
	res, err := c.get(ctx, fmt.Sprintf("/team/%s/space", teamID), nil)
	if err != nil {
		return nil, err
	}
	return decodeItems(res.Get("spaces"), KindSpace, teamID), nil
}

// Folders returns the folders of one space. A space with no folders is
// a valid result; lists may live directly under the space.
func (c *Client) Folders(ctx context.Context, spaceID string) ([]Item, error) {
	res, err := c.get(ctx, fmt.Sprintf("/space/%s/folder", spaceID), nil)
	if err != nil {
		return nil, err
	}
	return decodeItems(res.Get("folders"), KindFolder, spaceID), nil
}

// Lists returns the lists under a folder, or directly under a space
// when folderID is empty.
func (c *Client) Lists(ctx context.Context, spaceID, folderID string) ([]Item, error) {
	path := fmt.Sprintf("/space/%s/list", spaceID)
	parent := spaceID
	if folderID != "" {
		path = fmt.Sprintf("/folder/%s/list", folderID)
		parent = folderID
	}
	res, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeItems(res.Get("lists"), KindList, parent), nil
}

// TeamMembers returns the usernames of one team's members.
func (c *Client) TeamMembers(ctx context.Context, teamID string) ([]string, error) {
	res, err := c.get(ctx, "/team", nil)
	if err != nil {
		return nil, err
	}
	var members []string
	res.Get("teams").ForEach(func(_, team gjson.Result) bool {
		if team.Get("id").String() != teamID {
			return true
		}
		team.Get("members").ForEach(func(_, member gjson.Result) bool {
			if name := member.Get("user.username").String(); name != "" {
				members = append(members, name)
			}
			return true
		})
		return false
	})
	return members, nil
}

func decodeItems(arr gjson.Result, kind Kind, parentID string) []Item {
	items := make([]Item, 0, len(arr.Array()))
	arr.ForEach(func(_, raw gjson.Result) bool {
		items = append(items, Item{
			Kind:     kind,
			ID:       raw.Get("id").String(),
			Name:     raw.Get("name").String(),
			ParentID: parentID,
		})
		return true
	})
	return items
}
