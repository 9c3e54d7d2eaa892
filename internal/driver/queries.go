package driver

const (
	SaveChannelQuery = `
		MERGE (c:Channel {url: $url})
		SET c.analyzed_at = $analyzed_at
		RETURN c.url AS url
	`

	SaveThemeNodeQuery = `
		MATCH (c:Channel {url: $channel_url})
		MERGE (n:Theme {uuid: $uuid})
		SET n.theme_id = $theme_id,
			n.channel_url = $channel_url,
			n.group = $group,
			n.description = $description,
			n.detail = $detail,
			n.relevance = $relevance,
			n.popularity = $popularity,
			n.cluster = $cluster
		MERGE (c)-[:HAS_THEME]->(n)
		RETURN n.uuid AS uuid
	`

	SaveThemeLinkQuery = `
		MATCH (source:Theme {theme_id: $source_id, channel_url: $channel_url})
		MATCH (target:Theme {theme_id: $target_id, channel_url: $channel_url})
		MERGE (source)-[e:RELATES_TO]->(target)
		SET e.weight = $weight
		RETURN e.weight AS weight
	`

	SaveVideoQuery = `
		MATCH (c:Channel {url: $channel_url})
		MERGE (v:Video {uuid: $uuid})
		SET v.channel_url = $channel_url,
			v.title = $title,
			v.summary = $summary,
			v.url = $url,
			v.date = $date
		MERGE (c)-[:HAS_VIDEO]->(v)
		RETURN v.uuid AS uuid
	`

	GetChannelQuery = `
		MATCH (c:Channel {url: $url})
		RETURN c.url AS url, c.analyzed_at AS analyzed_at
	`

	GetThemeNodesQuery = `
		MATCH (c:Channel {url: $url})-[:HAS_THEME]->(n:Theme)
		RETURN n.theme_id AS theme_id, n.group AS group,
			n.description AS description, n.detail AS detail,
			n.relevance AS relevance, n.popularity AS popularity,
			n.cluster AS cluster
		ORDER BY n.theme_id
	`

	GetThemeLinksQuery = `
		MATCH (source:Theme {channel_url: $url})-[e:RELATES_TO]->(target:Theme)
		RETURN source.theme_id AS source_id, target.theme_id AS target_id, e.weight AS weight
		ORDER BY source_id, target_id
	`

	GetVideosQuery = `
		MATCH (c:Channel {url: $url})-[:HAS_VIDEO]->(v:Video)
		RETURN v.title AS title, v.summary AS summary, v.url AS url, v.date AS date
		ORDER BY v.date DESC, v.title
	`

	DeleteChannelGraphQuery = `
		MATCH (c:Channel {url: $url})
		OPTIONAL MATCH (c)-[:HAS_THEME]->(n:Theme)
		OPTIONAL MATCH (c)-[:HAS_VIDEO]->(v:Video)
		DETACH DELETE n, v, c
	`
)
