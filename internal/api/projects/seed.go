package projects

import (
	"fmt"

	"github.com/pairpad/pairpad/internal/models"
)

// seedFiles builds the three starter files every new project receives.
// The canonical stylesheet name is styles.css.
func seedFiles(projectName, owner string) []*models.File {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <link rel="stylesheet" href="styles.css">
</head>
<body>
    <div class="container">
        <h1>Hello, World!</h1>
        <p>Welcome to %s</p>
        <button onclick="handleClick()">Click Me</button>
    </div>
    <script src="script.js"></script>
</body>
</html>`, projectName, projectName)

	css := `* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

body {
    font-family: 'Inter', -apple-system, sans-serif;
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    min-height: 100vh;
    display: flex;
    align-items: center;
    justify-content: center;
}

.container {
    background: rgba(255, 255, 255, 0.95);
    padding: 3rem;
    border-radius: 20px;
    text-align: center;
}

button {
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    color: white;
    border: none;
    padding: 0.75rem 2rem;
    border-radius: 10px;
    cursor: pointer;
}`

	js := fmt.Sprintf(`function handleClick() {
    alert('It works!');
}

console.log('%s is ready');`, projectName)

	return []*models.File{
		models.NewFile("index.html", html, owner),
		models.NewFile("styles.css", css, owner),
		models.NewFile("script.js", js, owner),
	}
}
