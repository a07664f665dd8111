package mcp

import "next-nav-server/internal/models"

func filePathSchema(description string) models.Schema {
	return models.Schema{
		"type": "object",
		"properties": map[string]interface{}{
			"filePath": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"filePath"},
	}
}

// ToolDefinitions lists the tools served over tools/list.
func ToolDefinitions() []models.ToolDefinition {
	return []models.ToolDefinition{
		{
			Name: "build_tree",
			Description: "Builds the directory tree of a Next.js app directory. Every directory is a node; " +
				"files with .js, .jsx, .ts or .tsx extensions are listed and a directory is marked client " +
				"when one of them starts with a 'use client' directive.",
			InputSchema: models.Schema{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Directory to walk, absolute or relative to the workspace root. Empty means the root.",
					},
				},
			},
			Annotations: models.ToolAnnotations{ReadOnlyHint: true},
		},
		{
			Name:        "open_file",
			Description: "Returns the UTF-8 content of a file in the workspace.",
			InputSchema: filePathSchema("File to open, absolute or relative to the workspace root."),
			Annotations: models.ToolAnnotations{ReadOnlyHint: true},
		},
		{
			Name:        "add_file",
			Description: "Creates an empty file. Fails if the path already exists.",
			InputSchema: filePathSchema("File to create; its parent directory must exist."),
		},
		{
			Name:        "add_folder",
			Description: "Creates a directory. Fails if the path already exists.",
			InputSchema: filePathSchema("Directory to create; its parent directory must exist."),
		},
		{
			Name:        "delete_file",
			Description: "Deletes a file, or moves it to the trash directory when the server has one.",
			InputSchema: filePathSchema("File to delete."),
			Annotations: models.ToolAnnotations{DestructiveHint: true},
		},
		{
			Name:        "delete_folder",
			Description: "Deletes a directory and everything below it, or moves it to the trash directory when the server has one.",
			InputSchema: filePathSchema("Directory to delete."),
			Annotations: models.ToolAnnotations{DestructiveHint: true},
		},
	}
}
